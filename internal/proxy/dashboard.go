package proxy

import (
	"fmt"
	"net/http"

	"chatgw/internal/arkose"
	"chatgw/internal/core"
)

// DashboardRewriter injects a platform challenge token into API-key
// management requests. Unlike the conversation rewriter it tests field
// presence only: an existing value of any kind suppresses acquisition.
type DashboardRewriter struct {
	broker arkose.Broker
}

// NewDashboardRewriter creates a new dashboard rewriter.
func NewDashboardRewriter(broker arkose.Broker) *DashboardRewriter {
	return &DashboardRewriter{broker: broker}
}

// Name returns the rewriter name
func (r *DashboardRewriter) Name() string {
	return "dashboard"
}

// Priority returns the execution priority
func (r *DashboardRewriter) Priority() int {
	return 20
}

// Rewrite applies the dashboard transform.
func (r *DashboardRewriter) Rewrite(ctx *core.ProxyContext, req *core.Request) error {
	if !(req.Method == http.MethodPost && req.URL.Path == dashboardPath) {
		return nil
	}

	parsed, err := parseBody(req.Body)
	if err != nil {
		return err
	}

	if parsed.Get(arkoseTokenField).Exists() {
		return nil
	}

	challengeToken, err := r.broker.Acquire(ctx, arkose.Context{
		Type: arkose.TypePlatform,
	})
	if err != nil {
		return Internal(fmt.Errorf("challenge token acquisition: %w", err))
	}

	body, err := setBodyField(req.Body, arkoseTokenField, challengeToken)
	if err != nil {
		return err
	}
	req.Body = body
	ctx.Log.Debug("platform challenge token acquired")

	return nil
}
