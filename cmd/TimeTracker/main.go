package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	database "github.com/sebuszqo/TimeTracker/db"
	"github.com/sebuszqo/TimeTracker/internal/account"
	"github.com/sebuszqo/TimeTracker/internal/category/application"
	"github.com/sebuszqo/TimeTracker/internal/category/infrastructure"
	"github.com/sebuszqo/TimeTracker/internal/category/interfaces"
	"github.com/sebuszqo/TimeTracker/internal/config"
	"github.com/sebuszqo/TimeTracker/internal/metrics"
)

type Response struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string, errors ...[]string) {
	payload := map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	}
	if len(errors) > 0 && len(errors[0]) > 0 {
		payload["errors"] = errors[0]
	}
	respondJSON(w, status, payload)
}

type healthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Server struct {
	router          *http.ServeMux
	db              healthChecker
	accountHandler  *account.Handler
	categoryHandler *interfaces.CategoryHandler
}

func NewServer(db healthChecker, accountHandler *account.Handler, categoryHandler *interfaces.CategoryHandler) *Server {
	return &Server{
		db:              db,
		accountHandler:  accountHandler,
		categoryHandler: categoryHandler,
		router:          http.NewServeMux(),
	}
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	status := http.StatusOK
	if health["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, health)
}

func (s *Server) RegisterRoutes() {
	s.router.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))
	s.accountHandler.RegisterRoutes(s.router)
	s.categoryHandler.RegisterRoutes(s.router)
	s.router.Handle("/", http.HandlerFunc(notFoundHandler))
}

func (s *Server) Handler(logger *zap.Logger) http.Handler {
	return requestIDMiddleware(loggingMiddleware(logger)(s.router))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Missing configuration, update to start server: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Could not build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbService, err := database.NewDBService(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("could not initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if err := dbService.Migrate(); err != nil {
		logger.Fatal("could not migrate database", zap.Error(err))
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("could not register metrics", zap.Error(err))
	}

	categoryRepo := infrastructure.NewCategoryRepository(dbService.DB, logger)
	categoryService := application.NewService(categoryRepo, logger)
	categoryHandler := interfaces.NewCategoryHandler(categoryService, logger, respondJSON, respondError)

	accountRepo := account.NewAccountRepository(dbService.DB)
	accountService := account.NewAccountService(accountRepo, categoryService, logger)
	accountHandler := account.NewHandler(accountService, logger, respondJSON, respondError)

	server := NewServer(dbService, accountHandler, categoryHandler)
	server.RegisterRoutes()

	if cfg.IntegritySchedule != "" {
		checker := application.NewIntegrityChecker(categoryRepo, logger)
		scheduler, err := checker.Schedule(cfg.IntegritySchedule)
		if err != nil {
			logger.Fatal("integrity scheduler didn't start, stopping the app", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		logger.Info("metrics server starting", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("server starting", zap.String("addr", cfg.HTTPAddr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed to start", zap.Error(err))
	}
}
