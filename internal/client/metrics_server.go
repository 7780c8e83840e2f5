package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const metricsShutdownTimeout = 5 * time.Second

// metricsServer serves /metrics until stopped.
type metricsServer struct {
	server *http.Server
	log    *logger.Logger
	wg     sync.WaitGroup
}

func newMetricsServer(addr string, metrics http.Handler, log *logger.Logger) *metricsServer {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Method(http.MethodGet, "/metrics", metrics)

	return &metricsServer{
		server: &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second},
		log:    log,
	}
}

func (s *metricsServer) Start(context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info().Str("addr", s.server.Addr).Msg("serving metrics")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Err(err).Str("func", "metricsServer.Start").Msg("metrics server failed")
		}
	}()
}

func (s *metricsServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Err(err).Str("func", "metricsServer.Stop").Msg("error shutting down metrics server")
	}
	s.wg.Wait()
}
