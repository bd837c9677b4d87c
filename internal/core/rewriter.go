package core

// Rewriter is the middleware interface for the request-rewrite pipeline.
// A rewriter that does not recognize the request's route and method must
// return nil without touching the request.
type Rewriter interface {
	// Name returns the rewriter name
	Name() string
	// Priority returns the execution priority (lower = earlier)
	Priority() int
	// Rewrite mutates the request's headers and/or body in place.
	Rewrite(ctx *ProxyContext, req *Request) error
}
