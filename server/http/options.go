package http

import (
	"context"
	"net/http"
	"time"

	"github.com/w-h-a/calls/server"
)

type Middleware func(h http.Handler) http.Handler

type middlewareKey struct{}

type readHeaderTimeoutKey struct{}

// WithMiddleware wraps the served handler. The first middleware given sees
// each request first.
func WithMiddleware(ms ...Middleware) server.Option {
	return func(o *server.Options) {
		existing, _ := MiddlewareFrom(o.Context)
		all := append(append([]Middleware{}, existing...), ms...)
		o.Context = context.WithValue(o.Context, middlewareKey{}, all)
	}
}

func MiddlewareFrom(ctx context.Context) ([]Middleware, bool) {
	ms, ok := ctx.Value(middlewareKey{}).([]Middleware)
	return ms, ok
}

func WithReadHeaderTimeout(d time.Duration) server.Option {
	return func(o *server.Options) {
		o.Context = context.WithValue(o.Context, readHeaderTimeoutKey{}, d)
	}
}

func ReadHeaderTimeoutFrom(ctx context.Context) (time.Duration, bool) {
	d, ok := ctx.Value(readHeaderTimeoutKey{}).(time.Duration)
	return d, ok
}
