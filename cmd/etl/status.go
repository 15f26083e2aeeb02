package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	httpadapter "github.com/couchcryptid/trip-enrichment-etl/internal/adapter/http"
)

// statusServer runs the http adapter in the background for the life of the
// process.
type statusServer struct {
	srv     *httpadapter.Server
	timeout time.Duration
	logger  *slog.Logger
	done    chan struct{}
}

func startStatusServer(l net.Listener, srv *httpadapter.Server, timeout time.Duration, logger *slog.Logger) *statusServer {
	s := &statusServer{srv: srv, timeout: timeout, logger: logger, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	return s
}

// hold keeps the final report reachable until ctx ends or the server stops
// on its own.
func (s *statusServer) hold(ctx context.Context) {
	s.logger.Info("run complete, serving status until shutdown")
	select {
	case <-ctx.Done():
	case <-s.done:
	}
}

func (s *statusServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
	}
	<-s.done
}
