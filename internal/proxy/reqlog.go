package proxy

import (
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"chatgw/internal/core"
	"chatgw/internal/core/security"
)

// RequestLogger logs each inbound request before any rewriting happens.
// Anything taken from the request goes through the redactor first.
type RequestLogger struct {
	name     string
	priority int
	redactor *security.Redactor
}

// NewRequestLogger creates the logging rewriter. It runs first.
func NewRequestLogger() *RequestLogger {
	return &RequestLogger{
		name:     "request-logger",
		priority: -100,
		redactor: security.NewRedactor(),
	}
}

// Name returns the rewriter name
func (r *RequestLogger) Name() string {
	return r.name
}

// Priority returns the rewriter priority
func (r *RequestLogger) Priority() int {
	return r.priority
}

// Rewrite logs the request and leaves it untouched.
func (r *RequestLogger) Rewrite(ctx *core.ProxyContext, req *core.Request) error {
	model := gjson.GetBytes(req.Body, modelField).Str

	ctx.Log.Info("Request Started",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("model", model),
	)

	if ctx.Log.Core().Enabled(zap.DebugLevel) && req.Body != nil {
		ctx.Log.Debug("Request Body",
			zap.String("body", r.redactor.Sanitize(string(req.Body))),
		)
	}

	return nil
}
