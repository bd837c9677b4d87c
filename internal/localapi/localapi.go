// Package localapi decides which requests the proxy answers itself instead
// of forwarding upstream, based on configured method + path rules.
package localapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"go.uber.org/zap"

	"chatgw/internal/core"
)

// Rule matches requests by method and a path regular expression.
type Rule struct {
	// ID is the unique identifier for this rule
	ID string `mapstructure:"id"`
	// Method restricts the rule to one HTTP method; empty matches all
	Method string `mapstructure:"method"`
	// Path is a regular expression matched against the request path
	Path string `mapstructure:"path"`
}

// Config defines the local-handling rule set.
type Config struct {
	Rules []Rule `mapstructure:"rules"`
}

type compiledRule struct {
	id     string
	method string
	path   *regexp.Regexp
}

// LocalAPI implements the dispatcher's local-handling collaborator.
type LocalAPI struct {
	rules []compiledRule
	log   *zap.Logger
}

// New compiles the configured rules.
func New(cfg *Config, log *zap.Logger) (*LocalAPI, error) {
	api := &LocalAPI{log: log}
	for _, rule := range cfg.Rules {
		re, err := regexp.Compile(rule.Path)
		if err != nil {
			return nil, fmt.Errorf("invalid path pattern for rule %s: %w", rule.ID, err)
		}
		api.rules = append(api.rules, compiledRule{
			id:     rule.ID,
			method: rule.Method,
			path:   re,
		})
	}
	return api, nil
}

// Eligible reports whether any rule matches the request.
func (a *LocalAPI) Eligible(req *core.Request) bool {
	return a.match(req) != ""
}

func (a *LocalAPI) match(req *core.Request) string {
	for _, rule := range a.rules {
		if rule.method != "" && rule.method != req.Method {
			continue
		}
		if rule.path.MatchString(req.URL.Path) {
			return rule.id
		}
	}
	return ""
}

// Handle synthesizes a response for an eligible request.
func (a *LocalAPI) Handle(ctx *core.ProxyContext, req *core.Request) (*core.Response, error) {
	id := a.match(req)
	a.log.Debug("request served locally",
		zap.String("rule", id),
		zap.String("path", req.URL.Path),
	)

	switch req.URL.Path {
	case "/v1/models":
		return synthesize(http.StatusOK, `{"object":"list","data":[]}`), nil
	default:
		return synthesize(http.StatusNotFound, `{"detail":"not found"}`), nil
	}
}

func synthesize(status int, body string) *core.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &core.Response{
		Response: &http.Response{
			StatusCode:    status,
			Status:        http.StatusText(status),
			Proto:         "HTTP/1.1",
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        header,
			Body:          io.NopCloser(bytes.NewReader([]byte(body))),
			ContentLength: int64(len(body)),
		},
	}
}
