// Command slate-apid is the federation control-plane server: it loads
// config.yaml (overlaid by SLATE_ environment variables), wires the
// persistent store, authorization kernel, process supervisor, cascade
// coordinator, and command executor, and serves the §6 HTTP API until it
// receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/slateci/slate-federation/internal/api/middleware"
	"github.com/slateci/slate-federation/internal/api/rest"
	"github.com/slateci/slate-federation/internal/authz"
	"github.com/slateci/slate-federation/internal/cascade"
	"github.com/slateci/slate-federation/internal/config"
	"github.com/slateci/slate-federation/internal/executor"
	"github.com/slateci/slate-federation/internal/kvstore"
	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/pkg/logger"
	"github.com/slateci/slate-federation/internal/pkg/tracing"
	"github.com/slateci/slate-federation/internal/procsup"
	"github.com/slateci/slate-federation/internal/store"
)

func main() {
	logger := logger.StdLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.TracingEnabled {
		shutdownTracing, err := tracing.Init(cfg.TracingServiceName, cfg.TracingEndpoint, cfg.TracingSamplingRate)
		if err != nil {
			logger.Error("tracing init failed", "error", err)
		} else {
			defer shutdownTracing()
		}
	}

	backend, err := newBackend(cfg)
	if err != nil {
		log.Fatalf("failed to initialize kv backend: %v", err)
	}

	s := store.New(backend, store.Config{
		ClusterCacheValidity: time.Duration(cfg.ClusterCacheTTLSec) * time.Second,
		UserCacheValidity:    time.Duration(cfg.UserCacheTTLSec) * time.Second,
		KubeconfigDir:        cfg.KubeconfigDir,
	})

	az := authz.New(s)
	super := procsup.NewSupervisor()
	defer super.Close()

	concurrency := cfg.CascadeConcurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	casc := cascade.New(concurrency)

	exec := executor.New(s, az, super, casc, cfg.HelmBin, cfg.KubectlBin)
	exec.RepoNames[models.MainRepository] = cfg.HelmRepoMain
	exec.RepoNames[models.DevelopmentRepository] = cfg.HelmRepoDevelopment
	exec.RepoNames[models.TestRepository] = cfg.HelmRepoTest

	handler := rest.NewHandler(exec, []byte(cfg.SecretPassword))

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	rest.SetupRoutes(router, handler)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"kind":"Error","message":"Not found"}`))
	})

	router.Use(middleware.SecureHeaders)
	router.Use(middleware.RequestID)
	router.Use(middleware.StructuredLog)
	router.Use(middleware.Tracing)
	router.Use(middleware.RateLimit(cfg))
	router.Use(middleware.MaxBodySize(int64(cfg.BodyLimitBytes)))
	router.Use(middleware.Auth(az))
	router.Use(middleware.AuditLog(logger))
	router.Use(recoveryMiddleware(logger))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	requestTimeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	shutdownTimeout := time.Duration(cfg.ShutdownTimeoutSec) * time.Second

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.APIPort))
	if err != nil {
		log.Fatalf("failed to bind port %d: %v", cfg.APIPort, err)
	}

	srv := &http.Server{
		Handler:      corsHandler,
		ReadTimeout:  requestTimeout,
		WriteTimeout: requestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.APIPort, "kv_backend", cfg.KVBackend)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server exited gracefully")
}

// newBackend constructs the kvstore.Backend the config selects. Only
// "dynamo" and "sqlite" reach here: config.Load already rejects any other
// value.
func newBackend(cfg *config.Config) (kvstore.Backend, error) {
	switch cfg.KVBackend {
	case "dynamo":
		return kvstore.NewDynamo(context.Background(), cfg.DynamoRegion, cfg.DynamoTablePrefix)
	default:
		return kvstore.NewSQLite(cfg.SQLitePath)
	}
}

// recoveryMiddleware converts a panicking handler into a 500 rather than
// taking the whole process down.
func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"kind":"Error","message":"internal error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
