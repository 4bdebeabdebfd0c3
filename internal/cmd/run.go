package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/logsentry/logsentry/internal/classify"
	"github.com/logsentry/logsentry/internal/config"
	"github.com/logsentry/logsentry/internal/core"
	"github.com/logsentry/logsentry/internal/counter"
	"github.com/logsentry/logsentry/internal/dispatch"
	"github.com/logsentry/logsentry/internal/lockfile"
	"github.com/logsentry/logsentry/internal/mail"
	"github.com/logsentry/logsentry/internal/observability"
	"github.com/logsentry/logsentry/internal/pipeline"
	"github.com/logsentry/logsentry/internal/store"
)

func runPipeline(cmd *cobra.Command, args []string) error {
	logger := observability.CLILogger

	cfg, err := config.Load(cfgFile)
	if err != nil {
		ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration error", err)
	}
	threshold, _ := cfg.Threshold()

	digest, err := os.ReadFile(cfg.DigestPath)
	if err != nil {
		ExitWithCode(logger, foundry.ExitFileNotFound, "Cannot read log digest", err)
	}

	runID := uuid.NewString()
	startedAt := time.Now().UTC()
	logger.Info("starting guarded classification run",
		zap.String("run_id", runID),
		zap.String("digest", cfg.DigestPath))

	// A termination signal must still release the lock and flush counter
	// state; the pipeline's deferred cleanup runs on context cancellation.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock := lockfile.New(cfg.LockPath)
	if cfg.LockStaleAfter > 0 {
		lock.StaleAfter = cfg.LockStaleAfter
	}

	pipe := &pipeline.Pipeline{
		Lock:     pipeline.LockAcquirer{Acquirer: lock},
		Counters: counter.NewStore(cfg.StatePath),
		Limits:   cfg.Limits,
		Invoker:  classify.NewInvoker(cfg.APIBaseURL, cfg.APIKey, cfg.Model, cfg.Limits.RequestTimeout),
		Logger:   logger,
	}

	outcome, runErr := pipe.Run(ctx, string(digest))

	action := dispatch.Decide(outcome, threshold, cfg.AlwaysSendSummary)
	notified := deliver(ctx, cfg, outcome, action)
	recordHistory(ctx, cfg, runID, startedAt, outcome, notified)

	if runErr != nil {
		switch {
		case errors.Is(runErr, lockfile.ErrHeld):
			ExitWithCode(logger, foundry.ExitFailure, "Another run is active", runErr)
		case classify.IsFatal(runErr):
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Classification failed", runErr)
		default:
			ExitWithCode(logger, foundry.ExitFailure, "Run failed", runErr)
		}
	}

	logger.Info("run complete",
		zap.String("run_id", runID),
		zap.String("outcome", outcome.Kind.String()),
		zap.String("action", action.String()))
	return nil
}

// deliver sends the notification the dispatcher decided on. Delivery
// failures are logged, never fatal: the run itself completed.
func deliver(ctx context.Context, cfg *config.Config, outcome *core.RunOutcome, action dispatch.Action) bool {
	logger := observability.CLILogger
	if action == dispatch.Suppress {
		return false
	}
	if dryRun {
		logger.Info("dry run, skipping notification", zap.String("action", action.String()))
		return false
	}

	hostname, _ := os.Hostname()
	now := time.Now()

	var (
		msg *mail.Message
		err error
	)
	if action == dispatch.SendDegraded {
		msg, err = mail.ComposeDegraded(outcome.Err, hostname, now)
	} else {
		msg, err = mail.ComposeVerdict(outcome.Verdict, hostname, now)
	}
	if err != nil {
		logger.Error("failed to compose notification", zap.Error(err))
		return false
	}

	mailer, err := mail.NewMailer(cfg.SMTP)
	if err != nil {
		logger.Error("invalid smtp configuration", zap.Error(err))
		return false
	}
	if err := mailer.Send(ctx, msg); err != nil {
		logger.Error("failed to send notification", zap.Error(err))
		return false
	}

	logger.Info("notification sent", zap.String("subject", msg.Subject))
	return true
}

// recordHistory appends the run to the local history database, best effort.
func recordHistory(ctx context.Context, cfg *config.Config, runID string, startedAt time.Time, outcome *core.RunOutcome, notified bool) {
	logger := observability.CLILogger
	if !cfg.History.Enabled {
		return
	}

	db, err := store.Open(ctx, cfg.History.Path)
	if err != nil {
		logger.Warn("history store unavailable", zap.Error(err))
		return
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	if err := db.Migrate(ctx); err != nil {
		logger.Warn("history migration failed", zap.Error(err))
		return
	}

	rec := store.NewRunRecord(runID, startedAt, outcome, notified)
	if err := db.RecordRun(ctx, rec); err != nil {
		logger.Warn("failed to record run history", zap.Error(err))
	}
}
