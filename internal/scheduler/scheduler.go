// Package scheduler runs the daily maintenance passes over installments.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/vanshika/debtledger/backend/internal/service"
)

// Maintainer is implemented by the ledger service.
type Maintainer interface {
	MarkOverdueInstallments(ctx context.Context, today time.Time) (service.MaintenanceReport, error)
	SendDueReminders(ctx context.Context, today time.Time, daysBefore []int, dedupe time.Duration) (service.MaintenanceReport, error)
}

// Options configures a Runner.
type Options struct {
	RunHour      int
	ReminderDays []int
	Dedupe       time.Duration
	Location     *time.Location
	Tick         time.Duration
}

// Runner fires both passes once per calendar day at RunHour.
type Runner struct {
	maint   Maintainer
	opts    Options
	logger  *slog.Logger
	nowFn   func() time.Time
	lastDay time.Time
}

// New returns a Runner for maint. A nil Location means UTC and a zero Tick
// means one minute.
func New(maint Maintainer, opts Options, logger *slog.Logger) *Runner {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Minute
	}
	return &Runner{maint: maint, opts: opts, logger: logger, nowFn: time.Now}
}

// WithClock overrides the time provider (used primarily in tests).
func (r *Runner) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		r.nowFn = nowFn
	}
}

// Run ticks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("scheduler started", "run_hour", r.opts.RunHour, "tick", r.opts.Tick)
	ticker := time.NewTicker(r.opts.Tick)
	defer ticker.Stop()

	r.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs the passes if the run hour has been reached today and they have
// not run yet. It reports whether they ran.
func (r *Runner) Tick(ctx context.Context) bool {
	now := r.nowFn().In(r.opts.Location)
	if now.Hour() < r.opts.RunHour {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !r.lastDay.IsZero() && !today.After(r.lastDay) {
		return false
	}
	r.lastDay = today
	r.RunOnce(ctx, today)
	return true
}

// RunOnce executes both passes for today regardless of the clock.
func (r *Runner) RunOnce(ctx context.Context, today time.Time) {
	if _, err := r.maint.MarkOverdueInstallments(ctx, today); err != nil {
		r.logger.Error("overdue pass failed", "error", err)
	}
	if _, err := r.maint.SendDueReminders(ctx, today, r.opts.ReminderDays, r.opts.Dedupe); err != nil {
		r.logger.Error("reminder pass failed", "error", err)
	}
}
