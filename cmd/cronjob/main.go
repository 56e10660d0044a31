package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"lendledger/internal/config"
	"lendledger/internal/jobs"
	"lendledger/internal/logger"
	regmemory "lendledger/internal/registry/memory"
	"lendledger/internal/repository/postgres"
	"lendledger/internal/scheduler"
	"lendledger/internal/service"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'conservation-audit')")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting ledger cronjob runner...", "log_level", cfg.Log.Level)

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	store := postgres.NewStore(db)

	// The audit only reads ledger state, so the collaborator slots are
	// filled with in-process registries; issuance totals come back as
	// unknown unless the deployment wires a reporting credit registry.
	policy := service.Policy{
		FixedSpread:     cfg.Policy.FixedSpread,
		FeeSinkAccount:  cfg.Policy.FeeSinkAccount,
		AdminPrincipal:  cfg.Admin.Principal,
		MetadataBaseURL: cfg.Policy.MetadataBaseURL,
	}
	ledgerSvc := service.NewLedgerService(
		store,
		regmemory.NewCreditRegistry(),
		regmemory.NewCertificateRegistry(),
		regmemory.NewPayoutSink(),
		policy,
	)

	jobRunner := jobs.NewJobRunner(ledgerSvc, cfg)

	if *runOnce != "" {
		runSingleJob(jobRunner, *runOnce)
		return
	}

	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sched.Stop()
	logger.Info("Cronjob runner stopped")
}

func runSingleJob(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "conservation-audit":
		jobRunner.ConservationAudit()
	default:
		logger.Error("Unknown job", "job", jobName)
		os.Exit(1)
	}
}
