package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Hop-by-hop headers are never forwarded upstream.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Proxy-Connection":    true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	// Recomputed by the transport from the (possibly replaced) body.
	"Content-Length": true,
}

// setHeader validates value and sets it on h. A value the wire format cannot
// carry is a client fault, surfaced before anything is sent.
func setHeader(h http.Header, name, value string) error {
	if !httpguts.ValidHeaderFieldValue(value) {
		return BadRequest(fmt.Errorf("invalid value for header %s", name))
	}
	h.Set(name, value)
	return nil
}

// ConvertHeaders canonicalizes header names, drops hop-by-hop headers,
// validates values, and materializes the cookie jar's state for the origin
// into the Cookie header. Cookies already set on the request win over jar
// cookies of the same name.
func ConvertHeaders(h http.Header, jar http.CookieJar, origin string) (http.Header, error) {
	out := make(http.Header, len(h))
	for name, values := range h {
		canonical := http.CanonicalHeaderKey(name)
		if hopByHopHeaders[canonical] {
			continue
		}
		for _, v := range values {
			if !httpguts.ValidHeaderFieldValue(v) {
				return nil, BadRequest(fmt.Errorf("invalid value for header %s", canonical))
			}
			out.Add(canonical, v)
		}
	}

	if jar != nil {
		originURL, err := url.Parse(origin)
		if err != nil {
			return nil, BadRequest(fmt.Errorf("invalid origin %q: %w", origin, err))
		}
		mergeJarCookies(out, jar.Cookies(originURL))
	}

	return out, nil
}

// mergeJarCookies appends jar cookies to the Cookie header, skipping names
// the request already carries. The existing header value is kept verbatim so
// the canonical `name=value;` form set by the rewriters survives conversion.
func mergeJarCookies(h http.Header, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}

	existing := h.Get("Cookie")
	present := make(map[string]bool)
	for _, ck := range (&http.Request{Header: h}).Cookies() {
		present[ck.Name] = true
	}

	b := existing
	for _, ck := range cookies {
		if present[ck.Name] {
			continue
		}
		if b != "" {
			if strings.HasSuffix(b, ";") {
				b += " "
			} else {
				b += "; "
			}
		}
		b += ck.Name + "=" + ck.Value
	}

	if b != existing {
		h.Set("Cookie", b)
	}
}
