package server

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatgw/internal/core"
	"chatgw/internal/proxy"
)

// HTTPServer wires the request dispatcher behind an HTTP listener.
type HTTPServer struct {
	*Server
	origin     string
	dispatcher *proxy.Dispatcher
	jar        http.CookieJar
}

// NewHTTPServer creates the server. origin is the upstream base the
// dispatcher forwards to.
func NewHTTPServer(addr, origin string, dispatcher *proxy.Dispatcher, log *zap.Logger) *HTTPServer {
	// cookiejar.New only fails on bad options; none are passed.
	jar, _ := cookiejar.New(nil)
	srv := &HTTPServer{
		Server: &Server{
			addr: addr,
			log:  log,
		},
		origin:     origin,
		dispatcher: dispatcher,
		jar:        jar,
	}
	srv.Server.handler = srv.routes()
	return srv
}

// Handler returns the HTTP handler, for tests and for Start.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *HTTPServer) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Everything else goes through the dispatcher.
	mux.HandleFunc("/", s.handleDispatch)

	return mux
}

// handleDispatch captures the inbound request, runs it through the
// dispatcher, and relays the result.
func (s *HTTPServer) handleDispatch(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	ctx := core.NewProxyContext(r.Context(), s.log.With(zap.String("request_id", requestID)))
	ctx.RequestID = requestID

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		body = nil
	}

	req := &core.Request{
		Method: r.Method,
		URL:    r.URL,
		Header: r.Header.Clone(),
		Body:   body,
		Jar:    s.jar,
	}

	resp, err := s.dispatcher.Dispatch(ctx, s.origin, req)
	if err != nil {
		status := proxy.StatusOf(err)
		ctx.Log.Error("Dispatch failed", zap.Error(err), zap.Int("status", status))
		s.writeError(w, err.Error(), status)
		return
	}
	defer resp.Body.Close()

	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set("X-Request-Id", resp.RequestID)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		ctx.Log.Warn("Response relay interrupted", zap.Error(err))
	}

	ctx.Log.Info("Request Finished",
		zap.Duration("latency", time.Since(ctx.StartTime)),
		zap.Int("status", resp.StatusCode),
		zap.Bool("local", resp.Local),
	)
}

// writeError writes a JSON error response.
func (s *HTTPServer) writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	out, _ := sonic.Marshal(map[string]interface{}{
		"error": map[string]string{"message": msg, "type": "proxy_error"},
	})
	w.Write(out)
}
