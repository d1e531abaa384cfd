package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// New returns an http.Client whose transport records OpenTelemetry spans.
// A zero timeout leaves the deadline to the request context.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// Or returns c when set, otherwise an instrumented client.
func Or(c *http.Client, timeout time.Duration) *http.Client {
	if c != nil {
		return c
	}
	return New(timeout)
}
