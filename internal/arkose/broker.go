package arkose

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Type identifies which anti-automation challenge a token must satisfy.
type Type string

const (
	TypeGPT3     Type = "gpt3"
	TypeGPT4     Type = "gpt4"
	TypePlatform Type = "platform"
)

// Context is the per-call acquisition request. It is built fresh for every
// acquisition and consumed once.
type Context struct {
	Type Type
	// Identifier ties the token to a caller identity; empty for platform
	// tokens.
	Identifier string
}

// Broker acquires challenge tokens. Implementations must be safe for
// concurrent use. Retries, if any, belong behind this interface.
type Broker interface {
	Acquire(ctx context.Context, actx Context) (string, error)
}

// SolverBroker acquires tokens from an external solver service over HTTP.
type SolverBroker struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewSolverBroker creates a broker backed by the solver service at baseURL.
func NewSolverBroker(baseURL string, client *http.Client, log *zap.Logger) *SolverBroker {
	if client == nil {
		client = &http.Client{
			Timeout: 60 * time.Second,
		}
	}
	return &SolverBroker{
		baseURL: baseURL,
		client:  client,
		log:     log,
	}
}

type acquireRequest struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier,omitempty"`
}

// Acquire requests a fresh challenge token from the solver service.
func (b *SolverBroker) Acquire(ctx context.Context, actx Context) (string, error) {
	reqBody, err := sonic.Marshal(acquireRequest{
		Type:       string(actx.Type),
		Identifier: actx.Identifier,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := b.baseURL + "/token"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("solver returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := sonic.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if result.Token == "" {
		return "", fmt.Errorf("solver returned no token for type %s", actx.Type)
	}

	b.log.Debug("challenge token acquired", zap.String("type", string(actx.Type)))
	return result.Token, nil
}
