package proxy

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"

	"go.uber.org/zap"

	"chatgw/internal/arkose"
	"chatgw/internal/core"
)

// Shared fakes for the rewriter and dispatcher tests.

type fakeCache struct {
	sid   string
	ok    bool
	err   error
	calls int32
}

func (f *fakeCache) GetOrInit(ctx context.Context, accessToken, model, key string) (string, bool, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.sid, f.ok, f.err
}

type fakeSentinel struct {
	token string
	ok    bool
	err   error
	calls int32
}

func (f *fakeSentinel) Fetch(ctx context.Context, accessToken string) (string, bool, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.token, f.ok, f.err
}

type fakeBroker struct {
	token string
	err   error
	calls int32
	last  arkose.Context
}

func (f *fakeBroker) Acquire(ctx context.Context, actx arkose.Context) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.last = actx
	return f.token, f.err
}

func newRequest(method, path string, body []byte, header http.Header) *core.Request {
	u, err := url.Parse(path)
	if err != nil {
		panic(err)
	}
	if header == nil {
		header = make(http.Header)
	}
	return &core.Request{
		Method: method,
		URL:    u,
		Header: header,
		Body:   body,
	}
}

func newTestContext() *core.ProxyContext {
	ctx := core.NewProxyContext(context.Background(), zap.NewNop())
	ctx.RequestID = "test-req"
	return ctx
}
