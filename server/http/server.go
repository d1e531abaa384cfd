package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/w-h-a/calls/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type httpServer struct {
	options server.Options
	mtx     sync.RWMutex
	handler http.Handler
	addr    string
}

func (s *httpServer) Options() server.Options {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	options := s.options
	if len(s.addr) > 0 {
		options.Address = s.addr
	}

	return options
}

func (s *httpServer) Handle(handler any) error {
	h, ok := handler.(http.Handler)
	if !ok {
		return fmt.Errorf("http server cannot serve handler of type %T", handler)
	}

	if ms, ok := MiddlewareFrom(s.options.Context); ok {
		for i := len(ms) - 1; i >= 0; i-- {
			h = ms[i](h)
		}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.handler = otelhttp.NewHandler(h, s.options.Name)

	return nil
}

// Run listens on the configured address and serves until ctx ends, then
// shuts down gracefully.
func (s *httpServer) Run(ctx context.Context) error {
	s.mtx.RLock()
	handler := s.handler
	s.mtx.RUnlock()

	if handler == nil {
		return errors.New("http server has no handler")
	}

	ln, err := net.Listen("tcp", s.options.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.options.Address, err)
	}

	s.mtx.Lock()
	s.addr = ln.Addr().String()
	s.mtx.Unlock()

	readHeaderTimeout := 5 * time.Second
	if d, ok := ReadHeaderTimeoutFrom(s.options.Context); ok {
		readHeaderTimeout = d
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(ln)
	}()

	slog.InfoContext(ctx, "http server listening", "address", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.InfoContext(ctx, "http server stopped")

	return nil
}

func NewServer(opts ...server.Option) server.Server {
	return &httpServer{
		options: server.NewOptions(opts...),
	}
}
