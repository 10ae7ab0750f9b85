package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldday/eventsync/internal/notify"
	"github.com/fieldday/eventsync/internal/types"
)

// Lifecycle advances scheduled event requests past their date boundary:
// scheduled → completed, driven purely by wall-clock time. The
// transition is monotonic and never reversed by sync.
type Lifecycle struct {
	Store    Store
	Notifier notify.Notifier
	Logger   *slog.Logger
	// Location determines where "midnight" falls. Defaults to the
	// process's local zone.
	Location *time.Location

	Clock func() time.Time
}

// NewLifecycle wires the time-driven state machine.
func NewLifecycle(st Store, notifier notify.Notifier, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{
		Store:    st,
		Notifier: notifier,
		Logger:   logger,
		Location: time.Local,
		Clock:    time.Now,
	}
}

// CompletionBoundary returns the instant at which an event on eventDate
// becomes completable: the second midnight after the event day begins.
// The event's own day and the entire following day are grace — same-day
// and next-day edits must never race the transition.
func CompletionBoundary(eventDate time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := eventDate.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, 2)
}

// Run transitions every scheduled event request whose boundary has
// passed. Returns the number of transitions applied.
func (l *Lifecycle) Run(ctx context.Context) (int, error) {
	now := l.Clock()

	scheduled, err := l.Store.ListEventRequestsByStatus(ctx, types.StatusScheduled)
	if err != nil {
		return 0, fmt.Errorf("listing scheduled events: %w", err)
	}

	completed := 0
	for _, e := range scheduled {
		if e.EventDate.IsZero() {
			continue
		}
		if now.Before(CompletionBoundary(e.EventDate, l.Location)) {
			continue
		}

		if err := l.Store.UpdateEventRequestStatus(ctx, e.ID, types.StatusCompleted); err != nil {
			l.Logger.Warn("failed to complete event", "event_request", e.ID, "err", err)
			continue
		}
		completed++
		l.Logger.Info("event completed by lifecycle",
			"event_request", e.ID, "external_id", e.ExternalID, "event_date", e.EventDate.Format("2006-01-02"))

		if l.Notifier != nil {
			l.Notifier.Notify(ctx, notify.Event{
				Kind:    notify.KindLifecycleTransition,
				Subject: e.ExternalID,
				Body: fmt.Sprintf("event for %s on %s marked completed",
					e.OrganizationName, e.EventDate.Format("2006-01-02")),
			})
		}
	}

	return completed, nil
}
