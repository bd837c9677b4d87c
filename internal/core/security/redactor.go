package security

import (
	"regexp"
)

// Rule defines a credential detection rule.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Redactor scrubs credentials from text before it reaches a log sink. One
// caller's bearer token, session cookie, or challenge token must never show
// up in output another operator can read back.
type Redactor struct {
	rules []Rule
}

// NewRedactor creates a Redactor with the built-in rules, ordered so the
// more specific patterns match first.
func NewRedactor() *Redactor {
	r := &Redactor{
		rules: make([]Rule, 0),
	}

	// 1. Bearer credentials (header values and JWT-shaped access tokens)
	r.rules = append(r.rules, Rule{
		Name:        "Bearer Token",
		Pattern:     regexp.MustCompile(`Bearer\s+[A-Za-z0-9._~+/-]+=*`),
		Replacement: "Bearer [REDACTED]",
	})
	r.rules = append(r.rules, Rule{
		Name:        "JWT",
		Pattern:     regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9._-]+\b`),
		Replacement: "[JWT_REDACTED]",
	})

	// 2. Session-id cookie values
	r.rules = append(r.rules, Rule{
		Name:        "Session Cookie",
		Pattern:     regexp.MustCompile(`_puid=[^;\s]+`),
		Replacement: "_puid=[REDACTED]",
	})

	// 3. API keys
	r.rules = append(r.rules, Rule{
		Name:        "OpenAI API Key",
		Pattern:     regexp.MustCompile(`\bsk-(?:proj-)?[a-zA-Z0-9]{20,}\b`),
		Replacement: "[OPENAI_KEY_REDACTED]",
	})

	return r
}

// Sanitize applies all rules in order and returns the scrubbed text.
func (r *Redactor) Sanitize(input string) string {
	result := input
	for _, rule := range r.rules {
		result = rule.Pattern.ReplaceAllString(result, rule.Replacement)
	}
	return result
}

// AddRule registers a custom rule.
func (r *Redactor) AddRule(name string, pattern string, replacement string) error {
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, Rule{
		Name:        name,
		Pattern:     compiled,
		Replacement: replacement,
	})
	return nil
}

// GetRules returns a copy of the current rules.
func (r *Redactor) GetRules() []Rule {
	rulesCopy := make([]Rule, len(r.rules))
	copy(rulesCopy, r.rules)
	return rulesCopy
}
