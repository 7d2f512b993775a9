// Package reconciler periodically rederives unit availability flags from active bookings.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const jobName = "availability-reconcile"

var (
	ErrInvalidInterval = errors.New("reconciler: interval must be positive")
	ErrNilLedger       = errors.New("reconciler: ledger is required")
)

// Ledger is the reconciliation entry point, satisfied by *rental.Ledger.
type Ledger interface {
	Reconcile(ctx context.Context) ([]rental.UnitID, error)
}

// Reconciler runs Ledger.Reconcile on a fixed interval.
type Reconciler struct {
	ledger    Ledger
	interval  time.Duration
	logger    *zap.Logger
	scheduler gocron.Scheduler
	mutex     sync.Mutex
	cancel    context.CancelFunc
}

// New builds a Reconciler; call Start to schedule it.
func New(ledger Ledger, interval time.Duration, logger *zap.Logger) (*Reconciler, error) {
	if ledger == nil {
		return nil, ErrNilLedger
	}
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{ledger: ledger, interval: interval, logger: logger}, nil
}

// RunOnce performs a single reconciliation pass.
func (reconciler *Reconciler) RunOnce(ctx context.Context) ([]rental.UnitID, error) {
	corrected, err := reconciler.ledger.Reconcile(ctx)
	if err != nil {
		reconciler.logger.Error("availability reconcile failed", zap.Error(err))
		return nil, err
	}
	if len(corrected) > 0 {
		unitIDs := make([]string, 0, len(corrected))
		for _, unitID := range corrected {
			unitIDs = append(unitIDs, unitID.String())
		}
		reconciler.logger.Warn("availability flags corrected", zap.Strings("unit_ids", unitIDs))
	}
	return corrected, nil
}

// Start schedules the job, running the first pass immediately. Passes never overlap.
func (reconciler *Reconciler) Start(ctx context.Context) error {
	reconciler.mutex.Lock()
	defer reconciler.mutex.Unlock()
	if reconciler.scheduler != nil {
		return nil
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("reconciler: scheduler: %w", err)
	}
	jobCtx, cancel := context.WithCancel(ctx)
	_, err = scheduler.NewJob(
		gocron.DurationJob(reconciler.interval),
		gocron.NewTask(func() {
			_, _ = reconciler.RunOnce(jobCtx)
		}),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return fmt.Errorf("reconciler: job: %w", err)
	}
	scheduler.Start()
	reconciler.scheduler = scheduler
	reconciler.cancel = cancel
	reconciler.logger.Info("availability reconciler started", zap.Duration("interval", reconciler.interval))
	return nil
}

// Stop cancels the running pass and shuts the scheduler down.
func (reconciler *Reconciler) Stop() error {
	reconciler.mutex.Lock()
	defer reconciler.mutex.Unlock()
	if reconciler.scheduler == nil {
		return nil
	}
	reconciler.cancel()
	err := reconciler.scheduler.Shutdown()
	reconciler.scheduler = nil
	reconciler.cancel = nil
	return err
}
