package sentinel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// ErrUpstreamRejected marks failures coming from upstream content: a non-2xx
// status or an unparsable body. The caller surfaces these as the upstream's
// own rejection, distinct from transport faults.
var ErrUpstreamRejected = errors.New("sentinel: upstream rejected request")

// Fetcher retrieves the short-lived chat-requirements token the conversation
// endpoint is gated on. Tokens are never cached; one fetch per request.
type Fetcher struct {
	origin string
	client *http.Client
	log    *zap.Logger
}

// NewFetcher creates a fetcher against the given upstream origin.
func NewFetcher(origin string, client *http.Client, log *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{
			Timeout: 60 * time.Second,
		}
	}
	return &Fetcher{
		origin: origin,
		client: client,
		log:    log,
	}
}

// Fetch calls the sentinel endpoint with the bearer credential and returns
// the token value. The second return is false when the response carried no
// usable token field; that is a soft condition, not an error.
func (f *Fetcher) Fetch(ctx context.Context, accessToken string) (string, bool, error) {
	accessToken = strings.TrimPrefix(accessToken, "Bearer ")

	url := f.origin + "/backend-api/sentinel/chat-requirements"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false, fmt.Errorf("%w: HTTP %d", ErrUpstreamRejected, resp.StatusCode)
	}

	var result map[string]interface{}
	if err := sonic.Unmarshal(body, &result); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUpstreamRejected, err)
	}

	token, ok := result["token"].(string)
	if !ok {
		return "", false, nil
	}

	f.log.Debug("chat requirements token fetched")
	return token, true, nil
}
