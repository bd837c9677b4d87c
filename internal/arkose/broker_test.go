package arkose

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

func TestSolverBrokerAcquire(t *testing.T) {
	var got acquireRequest
	solver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Write([]byte(`{"token":"chal789"}`))
	}))
	defer solver.Close()

	b := NewSolverBroker(solver.URL, solver.Client(), zap.NewNop())
	token, err := b.Acquire(context.Background(), Context{Type: TypeGPT4, Identifier: "abc"})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if token != "chal789" {
		t.Errorf("expected chal789, got %q", token)
	}
	if got.Type != "gpt4" || got.Identifier != "abc" {
		t.Errorf("unexpected acquisition request: %+v", got)
	}
}

func TestSolverBrokerPlatformOmitsIdentifier(t *testing.T) {
	solver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if _, present := raw["identifier"]; present {
			t.Error("identifier must be omitted for platform tokens")
		}
		w.Write([]byte(`{"token":"chal789"}`))
	}))
	defer solver.Close()

	b := NewSolverBroker(solver.URL, solver.Client(), zap.NewNop())
	if _, err := b.Acquire(context.Background(), Context{Type: TypePlatform}); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
}

func TestSolverBrokerFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"solver error status", `{"error":"no session"}`, http.StatusBadGateway},
		{"empty token", `{"token":""}`, http.StatusOK},
		{"unparsable body", `oops`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer solver.Close()

			b := NewSolverBroker(solver.URL, solver.Client(), zap.NewNop())
			if _, err := b.Acquire(context.Background(), Context{Type: TypeGPT4}); err == nil {
				t.Error("expected error")
			}
		})
	}
}
