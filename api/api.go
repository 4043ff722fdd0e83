// Package api exposes the offense ingestion endpoint, health check, and
// Prometheus metrics over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"nuvex/core"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Triager runs the triage pipeline for one offense.
type Triager interface {
	Triage(ctx context.Context, offense *core.Offense) *core.Analysis
}

// API holds the HTTP server.
type API struct {
	router  *mux.Router
	server  *http.Server
	triager Triager
	pool    *core.WorkerPool
	logger  *zap.SugaredLogger
}

// NewAPI creates the API server. pool may be nil, which disables async
// ingestion.
func NewAPI(triager Triager, pool *core.WorkerPool, logger *zap.SugaredLogger) *API {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	a := &API{
		router:  mux.NewRouter(),
		triager: triager,
		pool:    pool,
		logger:  logger,
	}
	a.setupRoutes()
	return a
}

func (a *API) setupRoutes() {
	a.router.HandleFunc("/ingest-offense", a.ingestOffense).Methods("POST")
	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.HandleFunc("/healthz", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())
}

// Router returns the configured handler, mainly for tests.
func (a *API) Router() http.Handler {
	return a.router
}

// Start starts the API server and blocks until it stops.
func (a *API) Start(host string, port int) error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      a.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	a.logger.Infow("API server listening", "addr", a.server.Addr)
	return a.server.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (a *API) Stop(ctx context.Context) error {
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}
