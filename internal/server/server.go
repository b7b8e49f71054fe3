// Package server exposes the webhook ingestion endpoint and the history read
// API over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"wrapRelay/internal/history"
	"wrapRelay/internal/pipeline"
)

// Server ties the ingestion pipeline and the history service to HTTP routes.
// Independent deliveries are served concurrently; wallet serialization is the
// settlement engine's concern, not the server's.
type Server struct {
	processor *pipeline.Processor
	history   *history.Service
	logger    *zap.Logger
	http      *http.Server
}

func New(addr string, processor *pipeline.Processor, historySvc *history.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		processor: processor,
		history:   historySvc,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/webhooks/transfer", s.handleWebhook)
	mux.HandleFunc("/api/history/transactions", s.handleTransactions)
	mux.HandleFunc("/api/history/metadata", s.handleMetadata)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the route table, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
