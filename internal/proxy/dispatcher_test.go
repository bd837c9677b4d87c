package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"chatgw/internal/core"
)

type fakeUpstream struct {
	calls  int32
	method string
	url    string
	header http.Header
	body   []byte
	status int
	err    error
}

func (f *fakeUpstream) Do(ctx context.Context, method, url string, header http.Header, body []byte) (*http.Response, error) {
	atomic.AddInt32(&f.calls, 1)
	f.method, f.url, f.header, f.body = method, url, header, body
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader([]byte(`{}`))),
	}, nil
}

type fakeLocal struct {
	eligible bool
	calls    int32
}

func (f *fakeLocal) Eligible(req *core.Request) bool {
	return f.eligible
}

func (f *fakeLocal) Handle(ctx *core.ProxyContext, req *core.Request) (*core.Response, error) {
	atomic.AddInt32(&f.calls, 1)
	return &core.Response{
		Response: &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader([]byte(`{"object":"list"}`))),
		},
	}, nil
}

type failingRewriter struct {
	calls int32
}

func (r *failingRewriter) Name() string  { return "failing" }
func (r *failingRewriter) Priority() int { return 0 }
func (r *failingRewriter) Rewrite(ctx *core.ProxyContext, req *core.Request) error {
	atomic.AddInt32(&r.calls, 1)
	return BadRequest(errors.New("nope"))
}

func TestDispatchForwards(t *testing.T) {
	client := &fakeUpstream{}
	d := NewDispatcher(client, nil)

	h := make(http.Header)
	h.Set("Authorization", "Bearer abc")
	req := newRequest(http.MethodPost, "/backend-api/models?offset=0", []byte(`{}`), h)

	resp, err := d.Dispatch(newTestContext(), "https://chatgpt.com", req)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	defer resp.Body.Close()

	if client.url != "https://chatgpt.com/backend-api/models?offset=0" {
		t.Errorf("wrong forwarding url: %q", client.url)
	}
	if client.method != http.MethodPost {
		t.Errorf("wrong method: %q", client.method)
	}
	if client.header.Get("Authorization") != "Bearer abc" {
		t.Error("headers not forwarded")
	}
	if !bytes.Equal(client.body, []byte(`{}`)) {
		t.Error("body not forwarded")
	}
	if resp.RequestID != "test-req" {
		t.Errorf("response missing request id: %q", resp.RequestID)
	}
	if resp.Local {
		t.Error("forwarded response marked local")
	}
}

func TestDispatchLocalShortCircuit(t *testing.T) {
	client := &fakeUpstream{}
	local := &fakeLocal{eligible: true}
	rw := &failingRewriter{}
	d := NewDispatcher(client, local, rw)

	req := newRequest(http.MethodGet, "/v1/models", nil, nil)
	resp, err := d.Dispatch(newTestContext(), "https://chatgpt.com", req)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	defer resp.Body.Close()

	if !resp.Local {
		t.Error("short-circuited response not marked local")
	}
	if local.calls != 1 {
		t.Errorf("expected 1 local call, got %d", local.calls)
	}
	// Short-circuiting bypasses rewriting and forwarding entirely.
	if rw.calls != 0 {
		t.Error("rewriter ran on a locally handled request")
	}
	if client.calls != 0 {
		t.Error("upstream called on a locally handled request")
	}
}

func TestDispatchRewriteErrorAborts(t *testing.T) {
	client := &fakeUpstream{}
	rw := &failingRewriter{}
	d := NewDispatcher(client, nil, rw)

	req := newRequest(http.MethodPost, conversationPath, []byte(`{}`), nil)
	_, err := d.Dispatch(newTestContext(), "https://chatgpt.com", req)
	if err == nil {
		t.Fatal("expected rewrite error")
	}
	if client.calls != 0 {
		t.Error("nothing may be forwarded after a rewrite error")
	}
}

func TestDispatchHeaderConversionErrorAborts(t *testing.T) {
	client := &fakeUpstream{}
	d := NewDispatcher(client, nil)

	h := make(http.Header)
	h["X-Broken"] = []string{"bad\x00value"}
	req := newRequest(http.MethodGet, "/backend-api/models", nil, h)

	_, err := d.Dispatch(newTestContext(), "https://chatgpt.com", req)
	if err == nil {
		t.Fatal("expected header conversion error")
	}
	if got := StatusOf(err); got != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", got)
	}
	if client.calls != 0 {
		t.Error("nothing may be forwarded after a conversion error")
	}
}

func TestDispatchTransportErrorIsInternal(t *testing.T) {
	client := &fakeUpstream{err: errors.New("dial tcp: connection refused")}
	d := NewDispatcher(client, nil)

	req := newRequest(http.MethodGet, "/backend-api/models", nil, nil)
	_, err := d.Dispatch(newTestContext(), "https://chatgpt.com", req)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if got := StatusOf(err); got != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got)
	}
}
