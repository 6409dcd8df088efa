// Package schedule runs the engine's periodic work: the daily
// attendance rollover at midnight in the configured zone, the
// ban-expiry sweep, and the reconciliation sweep. Loops are
// independent goroutines that stop when their context is cancelled;
// a failing run is logged and the loop keeps its cadence.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner owns the timer goroutines.
type Runner struct {
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Every runs fn at a fixed interval until ctx is cancelled. The first
// run happens after one full interval.
func (r *Runner) Every(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					r.logger.Error("scheduled task failed", "task", name, "error", err)
				}
			}
		}
	}()
}

// DailyAtMidnight runs fn at every midnight in loc until ctx is
// cancelled.
func (r *Runner) DailyAtMidnight(ctx context.Context, name string, loc *time.Location, fn func(context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			wait := time.Until(nextMidnight(time.Now(), loc))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				if err := fn(ctx); err != nil {
					r.logger.Error("scheduled task failed", "task", name, "error", err)
				}
			}
		}
	}()
}

// Wait blocks until every loop has observed cancellation and returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// nextMidnight returns the first midnight in loc strictly after now.
func nextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return next
}
