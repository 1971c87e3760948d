package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kiwoom-trader/internal/broker"
	"kiwoom-trader/internal/config"
	apperrors "kiwoom-trader/internal/errors"
	"kiwoom-trader/internal/logging"
	"kiwoom-trader/internal/models"
	"kiwoom-trader/internal/strategy"
)

// RunnerConfig holds the collaborators of a strategy run.
type RunnerConfig struct {
	Registry  *strategy.Registry
	Settings  config.StrategySettings
	Quotes    strategy.QuoteSource
	Orders    broker.OrderService
	Portfolio *PortfolioStore
	Journal   Journal // optional
	DryRun    bool
	Logger    zerolog.Logger
}

// Runner executes a single strategy once.
type Runner struct {
	cfg    RunnerConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewRunner creates a runner. A nil registry means strategy.Default.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Registry == nil {
		cfg.Registry = strategy.Default
	}
	if cfg.Portfolio == nil {
		cfg.Portfolio = NewPortfolioStore(cfg.Logger)
	}
	return &Runner{
		cfg:    cfg,
		logger: logging.WithOperation(cfg.Logger, "runner"),
		now:    time.Now,
	}
}

// Run looks up name, builds it from its settings block and calls
// CheckSignals once. Unknown names fail with errors.ErrUnknownStrategy
// before anything is journaled. The returned run is nil only in that case
// or when the strategy cannot be built.
func (r *Runner) Run(ctx context.Context, name string) (*models.Run, error) {
	factory, err := r.cfg.Registry.Lookup(name, r.logger)
	if err != nil {
		return nil, err
	}

	s, err := factory(strategy.Settings(r.cfg.Settings.For(name)), r.cfg.Logger)
	if err != nil {
		return nil, apperrors.NewStrategyError(name, "load", err)
	}

	run := &models.Run{
		ID:        uuid.NewString(),
		Strategy:  name,
		DryRun:    r.cfg.DryRun,
		Status:    models.RunRunning,
		StartedAt: r.now(),
	}
	logger := logging.WithRunID(logging.WithStrategy(r.logger, name), run.ID)
	logger.Info().Str("display_name", s.Name()).Bool("dry_run", run.DryRun).Msg("Starting strategy run")

	if r.cfg.Journal != nil {
		if err := r.cfg.Journal.StartRun(ctx, run); err != nil {
			logger.Warn().Err(err).Msg("Failed to journal run start")
		}
	}

	runErr := r.execute(ctx, s, name, run.ID)

	run.FinishedAt = r.now()
	run.Status = models.RunSucceeded
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
		logger.Error().Err(runErr).Dur("duration", run.Duration()).Msg("Strategy run failed")
	} else {
		logger.Info().Dur("duration", run.Duration()).Msg("Strategy run completed")
	}

	if r.cfg.Journal != nil {
		if err := r.cfg.Journal.FinishRun(ctx, run.ID, run.Status, run.Error, run.FinishedAt); err != nil {
			logger.Warn().Err(err).Msg("Failed to journal run result")
		}
	}

	return run, runErr
}

func (r *Runner) execute(ctx context.Context, s strategy.Strategy, name, runID string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = apperrors.NewStrategyError(name, "check signals", fmt.Errorf("panic: %v", rec))
		}
	}()

	if err := r.cfg.Portfolio.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing portfolio: %w", err)
	}
	r.logger.Debug().
		Int("positions", len(r.cfg.Portfolio.Positions())).
		Time("updated_at", r.cfg.Portfolio.UpdatedAt()).
		Msg("Portfolio refreshed")

	ctx = logging.WithLogger(ctx, logging.WithRunID(r.cfg.Logger, runID))

	quotes := NewScanRecorder(r.cfg.Quotes, r.cfg.Journal, runID, r.logger)
	router := NewOrderRouter(r.cfg.Orders, r.cfg.Journal, RouterConfig{
		RunID:    runID,
		Strategy: name,
		DryRun:   r.cfg.DryRun,
		Logger:   r.cfg.Logger,
	})

	return s.CheckSignals(ctx, quotes, router, r.cfg.Portfolio)
}
