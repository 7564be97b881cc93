// Package sweeper runs the periodic reservation maintenance: pending
// reservations past their expiry are rejected by the system and confirmed
// reservations whose session has ended are completed.
package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"slotbook/pkg/logger"

	"github.com/robfig/cron/v3"
)

type Ledger interface {
	ExpirePending(ctx context.Context, now time.Time) (int, error)
	CompleteElapsed(ctx context.Context, now time.Time) (int, error)
}

type Result struct {
	Expired   int
	Completed int
}

type Sweeper struct {
	ledger  Ledger
	log     *logger.Logger
	now     func() time.Time
	timeout time.Duration

	mu sync.Mutex
}

// New returns a sweeper whose passes are bounded by timeout.
func New(ledger Ledger, log *logger.Logger, now func() time.Time, timeout time.Duration) *Sweeper {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Sweeper{ledger: ledger, log: log, now: now, timeout: timeout}
}

// RunOnce performs one pass. Both sweeps run even if the first fails.
// Concurrent calls are serialized.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	now := s.now()
	var res Result
	var expireErr, completeErr error
	res.Expired, expireErr = s.ledger.ExpirePending(ctx, now)
	res.Completed, completeErr = s.ledger.CompleteElapsed(ctx, now)

	err := errors.Join(expireErr, completeErr)
	args := []any{"expired", res.Expired, "completed", res.Completed, "duration_ms", time.Since(start).Milliseconds()}
	if err != nil {
		s.log.Error("Sweep finished with errors", append(args, "error", err)...)
	} else if res.Expired > 0 || res.Completed > 0 {
		s.log.Info("Sweep finished", args...)
	} else {
		s.log.Debug("Sweep finished", args...)
	}
	return res, err
}

// Start runs RunOnce on schedule until ctx is cancelled and then waits for a
// pass in flight. Overlapping ticks are skipped.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(schedule, func() {
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return err
	}

	s.log.Info("Sweeper started", "schedule", schedule)
	c.Start()
	<-ctx.Done()

	<-c.Stop().Done()
	s.log.Info("Sweeper stopped")
	return nil
}

// cronLogger adapts the service logger to cron's logging interface.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
