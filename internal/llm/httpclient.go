package llm

import (
	"net"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds one completion, including the body read.
// Interviewer turns are a few hundred tokens; the judge's JSON verdict is
// the slowest call.
const DefaultRequestTimeout = 60 * time.Second

// newLLMHTTPClient returns a client shared by every call to one provider.
// The interview socket and the judge may hit the same host concurrently, so
// a few idle connections are kept warm.
func newLLMHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   10,
			MaxConnsPerHost:       20,
			ForceAttemptHTTP2:     true,
		},
	}
}
