// Package puid caches the per-client session identifier the upstream issues
// via the _puid cookie. Lookups are cheap; acquisitions go through a
// single-flight group so concurrent requests for the same cache key share
// one underlying fetch.
package puid

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SessionCookieName is the upstream's session-id cookie marker.
const SessionCookieName = "_puid"

// AcquireFunc fetches a session id for the given credential and model.
// The second return is false when no session id applies to this client.
type AcquireFunc func(ctx context.Context, accessToken, model string) (string, bool, error)

type entry struct {
	sid     string
	expires time.Time
}

type flightResult struct {
	sid string
	ok  bool
}

// Cache is the session-id cache. Safe for unsynchronized concurrent use.
type Cache struct {
	acquire AcquireFunc
	ttl     time.Duration
	log     *zap.Logger

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

// NewCache creates a cache around the given acquisition function. A ttl of
// zero disables expiry.
func NewCache(acquire AcquireFunc, ttl time.Duration, log *zap.Logger) *Cache {
	return &Cache{
		acquire: acquire,
		ttl:     ttl,
		log:     log,
		entries: make(map[string]entry),
	}
}

// NewHTTPCache creates a cache whose acquisitions hit the upstream models
// endpoint.
func NewHTTPCache(origin string, client *http.Client, ttl time.Duration, log *zap.Logger) *Cache {
	return NewCache(HTTPAcquirer(origin, client), ttl, log)
}

// ReduceKey derives the cache key for a bearer credential.
func ReduceKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:])
}

// GetOrInit returns the cached session id for key, acquiring it when absent.
// At most one acquisition runs per key at a time; concurrent callers for the
// same key observe the same result. A failed or abandoned acquisition leaves
// no entry, so a later call retries.
func (c *Cache) GetOrInit(ctx context.Context, accessToken, model, key string) (string, bool, error) {
	if sid, ok := c.lookup(key); ok {
		return sid, true, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// A concurrent flight may have stored the entry between our lookup
		// and joining the group.
		if sid, ok := c.lookup(key); ok {
			return flightResult{sid: sid, ok: true}, nil
		}

		sid, ok, err := c.acquire(ctx, accessToken, model)
		if err != nil {
			return nil, err
		}
		if ok {
			c.store(key, sid)
		}
		return flightResult{sid: sid, ok: ok}, nil
	})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		r := res.Val.(flightResult)
		return r.sid, r.ok, nil
	}
}

// abbrev shortens a cache key for log output.
func abbrev(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}

func (c *Cache) lookup(key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false
	}
	return e.sid, true
}

func (c *Cache) store(key, sid string) {
	e := entry{sid: sid}
	if c.ttl > 0 {
		e.expires = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	c.log.Debug("session id cached", zap.String("key", abbrev(key)))
}

// HTTPAcquirer fetches the session id from the upstream models endpoint and
// reads it out of the Set-Cookie response headers. Only gpt-4 family models
// are issued session ids; other models yield absence without a call.
func HTTPAcquirer(origin string, client *http.Client) AcquireFunc {
	if client == nil {
		client = &http.Client{
			Timeout: 60 * time.Second,
		}
	}
	return func(ctx context.Context, accessToken, model string) (string, bool, error) {
		if !strings.Contains(model, "gpt-4") {
			return "", false, nil
		}

		url := origin + "/backend-api/models"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", false, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(accessToken, "Bearer "))

		resp, err := client.Do(req)
		if err != nil {
			return "", false, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return "", false, fmt.Errorf("models request returned HTTP %d", resp.StatusCode)
		}

		for _, ck := range resp.Cookies() {
			if ck.Name == SessionCookieName {
				return ck.Value, true, nil
			}
		}
		return "", false, nil
	}
}
