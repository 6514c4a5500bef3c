package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mr-karan/wgmesh/internal/metrics"
	"github.com/mr-karan/wgmesh/internal/middleware"
	"github.com/mr-karan/wgmesh/internal/provisioning"
	"github.com/mr-karan/wgmesh/internal/wgcrypto"
)

// Config holds server configuration.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
}

// Server handles HTTP API requests against the provisioning service.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	svc        *provisioning.Service
	pskFunc    wgcrypto.PSKFunc
	router     *mux.Router
}

// NewServer creates a new API server.
func NewServer(cfg Config, logger *slog.Logger, svc *provisioning.Service, pskFunc wgcrypto.PSKFunc) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		svc:     svc,
		pskFunc: pskFunc,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(
		middleware.Recovery(s.logger),
		middleware.Logger(s.logger),
		middleware.CORS(s.cfg.AllowedOrigins),
	)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/metrics", metrics.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/interfaces", s.handleListInterfaces).Methods("GET")
	api.HandleFunc("/interface/{name}", s.handleGetInterface).Methods("GET")
	api.HandleFunc("/interface/{name}/peers/apply", s.handleApplyPeers).Methods("POST")
	api.HandleFunc("/interface/{name}/toggle", s.handleToggle).Methods("POST")
	api.HandleFunc("/interface/{name}/reconcile", s.handleReconcile).Methods("POST")
	api.HandleFunc("/interface/{name}/audit", s.handleAudit).Methods("GET")
	api.HandleFunc("/generate", s.handleGenerate).Methods("POST")
	api.HandleFunc("/deploy", s.handleDeploy).Methods("POST")
}

// Router exposes the underlying mux.Router, mainly for tests.
func (s *Server) Router() *mux.Router { return s.router }

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.logger.Info("shutting down http server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("starting http server", "addr", s.cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
