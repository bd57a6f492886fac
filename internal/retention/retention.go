// Package retention runs the periodic sweep that expires mail older than
// the configured window: a single task, on a fixed interval, that is the
// only caller of Store.DeleteOlderThan.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/welldanyogia/webrana-infinimail-backend/internal/bus"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
)

// Interval is how often the sweep runs.
const Interval = time.Hour

// Task owns the periodic DeleteOlderThan sweep and republishes each
// removed row as an EmailDeleted event.
type Task struct {
	store    repository.Store
	bus      *bus.Bus
	logger   *slog.Logger
	hours    int64
	interval time.Duration
}

// New creates a Task. hours is EMAIL_RETENTION_HOURS; Run is a no-op when
// hours <= 0, matching "unset = disabled".
func New(store repository.Store, b *bus.Bus, hours int64, logger *slog.Logger) *Task {
	return &Task{store: store, bus: b, logger: logger, hours: hours, interval: Interval}
}

// Run blocks, sweeping every Interval until ctx is canceled. A panic
// inside one sweep is caught and logged; it never aborts the task or the
// process, and the next tick runs on schedule regardless.
func (t *Task) Run(ctx context.Context) {
	if t.hours <= 0 {
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sweepSafely(ctx)
		}
	}
}

func (t *Task) sweepSafely(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("retention sweep panicked", "panic", r)
		}
	}()

	deleted, err := t.store.DeleteOlderThan(ctx, t.hours)
	if err != nil {
		t.logger.Error("retention sweep failed", "error", err)
		return
	}

	for _, victim := range deleted {
		t.bus.PublishEmailDeleted(victim.ID, victim.Address)
	}
	if len(deleted) > 0 {
		t.logger.Info("retention sweep removed expired emails", "count", len(deleted))
	}
}
