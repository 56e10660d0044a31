package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	api "lendledger/internal/api/http"
	"lendledger/internal/config"
	"lendledger/internal/jobs"
	"lendledger/internal/logger"
	regmemory "lendledger/internal/registry/memory"
	"lendledger/internal/repository"
	storememory "lendledger/internal/repository/memory"
	"lendledger/internal/repository/postgres"
	"lendledger/internal/scheduler"
	"lendledger/internal/security"
	"lendledger/internal/service"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting lending ledger...", "log_level", cfg.Log.Level, "store", cfg.Store.Type)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())

	// Initialize ledger state store
	var store repository.Store
	switch cfg.Store.Type {
	case "postgres":
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Error("Failed to ping database", "error", err)
			log.Fatalf("Failed to ping database: %v", err)
		}
		logger.Info("Database connection established")
		store = postgres.NewStore(db)
	case "memory":
		logger.Info("Using in-memory store; state is lost on restart")
		store = storememory.NewStore()
	}

	// The collaborators run in-process by default; a deployment against
	// external registries swaps these constructors.
	credit := regmemory.NewCreditRegistry()
	certs := regmemory.NewCertificateRegistry()
	payouts := regmemory.NewPayoutSink()

	tokenManager := security.NewTokenManager(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute,
	)

	policy := service.Policy{
		FixedSpread:     cfg.Policy.FixedSpread,
		FeeSinkAccount:  cfg.Policy.FeeSinkAccount,
		AdminPrincipal:  cfg.Admin.Principal,
		MetadataBaseURL: cfg.Policy.MetadataBaseURL,
	}

	ledgerSvc := service.NewLedgerService(store, credit, certs, payouts, policy)
	authSvc := service.NewAuthService(tokenManager, cfg.Admin.Principal, cfg.Admin.PasswordHash)

	// Conservation audit on a cron schedule
	jobRunner := jobs.NewJobRunner(ledgerSvc, cfg)
	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()
	defer sched.Stop()

	// HTTP API
	r := mux.NewRouter()
	handler := api.NewHandler(ledgerSvc, authSvc)
	handler.RegisterRoutes(r, api.AuthMiddleware(tokenManager))

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
	logger.Info("Server stopped")
}
