package proxy

import (
	"context"
	"net/http"

	"chatgw/internal/core"
)

// LocalHandler decides whether a request is served in-proxy instead of being
// forwarded, and synthesizes the response when it is.
type LocalHandler interface {
	Eligible(req *core.Request) bool
	Handle(ctx *core.ProxyContext, req *core.Request) (*core.Response, error)
}

// UpstreamClient performs the outbound call. Timeouts are its concern;
// whatever error it raises propagates as a hard error.
type UpstreamClient interface {
	Do(ctx context.Context, method, url string, header http.Header, body []byte) (*http.Response, error)
}

// Dispatcher is the entry point of the rewriting stage. Given an inbound
// request it either short-circuits to the local handler or runs the rewrite
// pipeline and forwards the result. Either the fully-rewritten request is
// sent, or nothing is.
type Dispatcher struct {
	pipeline *core.Pipeline
	client   UpstreamClient
	local    LocalHandler
}

// NewDispatcher builds a dispatcher over the given collaborators. local may
// be nil when no in-proxy handling exists.
func NewDispatcher(client UpstreamClient, local LocalHandler, rewriters ...core.Rewriter) *Dispatcher {
	pipeline := core.NewPipeline()
	for _, rw := range rewriters {
		pipeline.AddRewriter(rw)
	}
	return &Dispatcher{
		pipeline: pipeline,
		client:   client,
		local:    local,
	}
}

// Dispatch processes one inbound request against the given upstream origin.
func (d *Dispatcher) Dispatch(ctx *core.ProxyContext, origin string, req *core.Request) (*core.Response, error) {
	// Local handling bypasses all rewriting.
	if d.local != nil && d.local.Eligible(req) {
		resp, err := d.local.Handle(ctx, req)
		if err != nil {
			return nil, err
		}
		resp.RequestID = ctx.RequestID
		resp.Local = true
		return resp, nil
	}

	url := origin + req.PathAndQuery()

	if err := d.pipeline.Execute(ctx, req); err != nil {
		return nil, err
	}

	headers, err := ConvertHeaders(req.Header, req.Jar, origin)
	if err != nil {
		return nil, err
	}

	httpResp, err := d.client.Do(ctx, req.Method, url, headers, req.Body)
	if err != nil {
		return nil, Internal(err)
	}

	return &core.Response{
		Response:  httpResp,
		RequestID: ctx.RequestID,
	}, nil
}
