package core

import (
	"net/http"
	"net/url"
	"strings"
)

// Request is the proxy's view of an inbound request. It is owned exclusively
// by the dispatcher while the request is in flight: rewriters may mutate
// Header and replace Body wholesale, nothing else.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	// Body is nil when the inbound request carried no body. Mutations replace
	// the whole slice; the bytes are never patched in place.
	Body []byte
	// Jar is the caller-owned cookie jar, passed through to header
	// conversion unchanged.
	Jar http.CookieJar
}

// PathAndQuery returns the request path including the raw query, if any.
func (r *Request) PathAndQuery() string {
	if r.URL.RawQuery != "" {
		return r.URL.Path + "?" + r.URL.RawQuery
	}
	return r.URL.Path
}

// BearerAuth extracts the bearer credential from the Authorization header.
// Returns "" when the header is absent or not a bearer scheme.
func (r *Request) BearerAuth() string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// Response wraps the upstream response together with proxy-side metadata.
// Ownership transfers to the caller of Dispatch; the caller closes Body.
type Response struct {
	*http.Response
	RequestID string
	// Local reports whether the response was synthesized in-proxy instead of
	// being relayed from the upstream.
	Local bool
}
