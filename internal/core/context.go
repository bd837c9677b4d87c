package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProxyContext extends standard context with request-scoped fields.
type ProxyContext struct {
	context.Context
	RequestID string
	StartTime time.Time
	Log       *zap.Logger

	mu       sync.RWMutex
	metadata map[string]interface{}
}

// NewProxyContext creates a new ProxyContext.
func NewProxyContext(ctx context.Context, logger *zap.Logger) *ProxyContext {
	return &ProxyContext{
		Context:   ctx,
		StartTime: time.Now(),
		Log:       logger,
		metadata:  make(map[string]interface{}),
	}
}

// SetMetadata sets a metadata value (thread-safe)
func (c *ProxyContext) SetMetadata(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

// GetMetadata gets a metadata value (thread-safe)
func (c *ProxyContext) GetMetadata(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.metadata[key]
	return v, ok
}
