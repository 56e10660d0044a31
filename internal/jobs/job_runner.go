package jobs

import (
	"lendledger/internal/config"
	"lendledger/internal/logger"
	"lendledger/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	ledger service.LedgerService
	config *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(ledger service.LedgerService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		ledger: ledger,
		config: cfg,
	}
}

// Config exposes the configuration for schedule registration
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}
