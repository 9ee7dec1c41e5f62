package transport

import (
	"net/http"

	"golang.org/x/oauth2"
)

// headerRoundTripper sets static headers on every outbound request.
type headerRoundTripper struct {
	headers http.Header
	base    http.RoundTripper
}

func (r *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	for k, values := range r.headers {
		cloned.Header.Del(k)
		for _, v := range values {
			cloned.Header.Add(k, v)
		}
	}
	return r.base.RoundTrip(cloned)
}

// newHTTPClient returns a client carrying the configured headers and bearer token on every call.
// The client has no timeout since SSE subscriptions are long lived.
func newHTTPClient(config *Config, base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	var rt = base
	if len(config.Headers) > 0 {
		headers := make(http.Header, len(config.Headers))
		for k, v := range config.Headers {
			headers.Set(k, v)
		}
		rt = &headerRoundTripper{headers: headers, base: rt}
	}
	if config.BearerToken != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.BearerToken, TokenType: "Bearer"}),
			Base:   rt,
		}
	}
	return &http.Client{Transport: rt}
}
