// FilePath: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	nuts "github.com/vaudience/go-nuts"

	"github.com/gridsense/telemetry-hub/api"
	"github.com/gridsense/telemetry-hub/internal/cache"
	"github.com/gridsense/telemetry-hub/internal/config"
	"github.com/gridsense/telemetry-hub/internal/database"
	"github.com/gridsense/telemetry-hub/internal/hubservice"
	"github.com/gridsense/telemetry-hub/internal/monitoring"
	"github.com/gridsense/telemetry-hub/internal/repository/postgres"
)

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	srv        *http.Server
	router     *api.Router
	hubservice *hubservice.HubService
	monitoring *monitoring.Service
	db         database.DB
	cache      *cache.Cache
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{config: cfg}
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Initialize services
	s.hubservice = s.initializeHubService()
	s.monitoring = monitoring.NewService(monitoring.Config{
		LogLevel: s.config.Monitoring.LogLevel,
	})

	// Set up cleanup event handlers
	s.setupCleanupHandlers()

	// Setup routes
	s.router = api.NewRouter(s.hubservice)
	s.router.SetHealthCheck(s.handleHealth())

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(s.config.CORS.AllowedOrigins),
		gorillahandlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
		}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-API-Key"}),
	)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      cors(s.router),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	// Start server
	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	if err := s.cache.Close(); err != nil {
		nuts.L.Warnf("[Server] Error closing cache: %v", err)
	}
	if err := s.db.Close(); err != nil {
		nuts.L.Warnf("[Server] Error closing database: %v", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// handleHealth reports service health including the state of the
// backing stores.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		dbStatus := "ok"
		if err := s.db.Ping(ctx); err != nil {
			status = "degraded"
			dbStatus = "unreachable"
			code = http.StatusServiceUnavailable
		}
		cacheStatus := "disabled"
		if s.cache.Available() {
			cacheStatus = "ok"
		}

		payload := map[string]interface{}{
			"status":   status,
			"version":  nuts.GetVersion(),
			"database": dbStatus,
			"cache":    cacheStatus,
			"events":   s.monitoring.EventCounts(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			nuts.L.Errorf("[Server] Failed to write health response: %v", err)
		}
	}
}

func (s *Server) setupCleanupHandlers() {
	// Handle device deletion events
	s.hubservice.Cleanup.OnCleanup("device.deleted", func(id string) {
		nuts.L.Infof("[Cleanup] Device %s and all associated data deleted", id)
		s.monitoring.RecordEvent("device_deletion", map[string]string{
			"device_id": id,
		})
	})
}

// initializeHubService creates and configures the hub service
func (s *Server) initializeHubService() *hubservice.HubService {
	s.db = initDB(s.config.Database.Postgres)

	// Repositories initialize their own schema; devices and users
	// must exist before the metric tables reference them.
	devices, err := postgres.NewDeviceRepository(s.db)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize device repository: %v", err)
	}
	users, err := postgres.NewUserRepository(s.db)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize user repository: %v", err)
	}
	metrics, err := postgres.NewMetricRepository(s.db)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize metric repository: %v", err)
	}

	s.cache = cache.New(s.config.Redis)

	svc := hubservice.New(metrics, devices, users, s.cache)
	if err := svc.Validate(); err != nil {
		nuts.L.Fatalf("[Server] Invalid service configuration: %v", err)
	}
	return svc
}

func initDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewPostgresDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping database: %v", err)
	}
	return wrappedDB
}
