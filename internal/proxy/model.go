package proxy

import (
	"fmt"
	"strings"

	"chatgw/internal/arkose"
)

type modelFamily int

const (
	familyGPT3 modelFamily = iota
	familyGPT4
)

// ChatModel is a parsed, validated model identifier. Immutable once parsed;
// the family classification drives the challenge-token decision.
type ChatModel struct {
	name   string
	family modelFamily
}

// ParseModel classifies a model string into the gpt-3 or gpt-4 family.
// Unrecognized identifiers are a client fault.
func ParseModel(name string) (ChatModel, error) {
	switch {
	case strings.Contains(name, "gpt-4"):
		return ChatModel{name: name, family: familyGPT4}, nil
	case strings.Contains(name, "gpt-3"),
		strings.Contains(name, "text-davinci"),
		strings.HasPrefix(name, "code-"):
		return ChatModel{name: name, family: familyGPT3}, nil
	default:
		return ChatModel{}, fmt.Errorf("unrecognized model %q", name)
	}
}

// Name returns the original model identifier.
func (m ChatModel) Name() string {
	return m.name
}

// IsGPT3 reports whether the model belongs to the gpt-3 family.
func (m ChatModel) IsGPT3() bool {
	return m.family == familyGPT3
}

// IsGPT4 reports whether the model belongs to the gpt-4 family.
func (m ChatModel) IsGPT4() bool {
	return m.family == familyGPT4
}

// ChallengeType maps the model family to its challenge type.
func (m ChatModel) ChallengeType() arkose.Type {
	if m.family == familyGPT4 {
		return arkose.TypeGPT4
	}
	return arkose.TypeGPT3
}
