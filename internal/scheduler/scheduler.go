// Package scheduler owns the periodic sync loop: a ticker fires a full
// pass, an advisory lock keeps concurrent processes from ever syncing at
// the same time, and manual triggers coalesce with whatever pass is in
// flight.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/fieldday/eventsync/internal/engine"
	"github.com/fieldday/eventsync/internal/notify"
	"github.com/fieldday/eventsync/internal/telemetry"
	"github.com/fieldday/eventsync/internal/types"
)

// DefaultInterval is the scheduled cadence between passes.
const DefaultInterval = 5 * time.Minute

// ErrAlreadyRunning is returned by Start when the loop is active.
var ErrAlreadyRunning = errors.New("scheduler: already running")

// Runtime drives sync passes. One Runtime exists per process; the
// advisory lock extends mutual exclusion across processes.
type Runtime struct {
	Projects  *engine.ProjectSync
	Events    *engine.EventSync
	Lifecycle *engine.Lifecycle
	Store     engine.Store
	Notifier  notify.Notifier
	Logger    *slog.Logger

	Interval time.Duration
	LockKey  string

	Clock func() time.Time

	passes   metric.Int64Counter
	skipped  metric.Int64Counter
	duration metric.Float64Histogram

	// group coalesces concurrent TriggerNow calls with the ticker pass.
	group singleflight.Group

	mu        sync.Mutex
	running   bool
	inPass    bool
	nextRunAt time.Time
	lastRun   *types.SyncRun
	stop      chan struct{}
	done      chan struct{}
}

// Options configures a Runtime.
type Options struct {
	Projects  *engine.ProjectSync
	Events    *engine.EventSync
	Lifecycle *engine.Lifecycle
	Store     engine.Store
	Notifier  notify.Notifier
	Logger    *slog.Logger
	Interval  time.Duration
	LockKey   string
}

// New builds a Runtime from options, applying defaults.
func New(opts Options) *Runtime {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.LockKey == "" {
		opts.LockKey = "eventsync.pass"
	}

	meter := telemetry.Meter("")
	passes, _ := meter.Int64Counter("eventsync.passes",
		metric.WithDescription("Completed sync passes by outcome"))
	skipped, _ := meter.Int64Counter("eventsync.passes_skipped",
		metric.WithDescription("Passes skipped because another process held the lock"))
	duration, _ := meter.Float64Histogram("eventsync.pass_duration",
		metric.WithDescription("Duration of acquired sync passes"),
		metric.WithUnit("s"))

	return &Runtime{
		Projects:  opts.Projects,
		Events:    opts.Events,
		Lifecycle: opts.Lifecycle,
		Store:     opts.Store,
		Notifier:  opts.Notifier,
		Logger:    opts.Logger,
		Interval:  opts.Interval,
		LockKey:   opts.LockKey,
		Clock:     time.Now,
		passes:    passes,
		skipped:   skipped,
		duration:  duration,
	}
}

// Start launches the loop. It fires one pass immediately, then every
// Interval. Returns ErrAlreadyRunning if the loop is active.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.loop(ctx)
	return nil
}

// Stop halts the loop and waits for any in-flight pass to finish.
func (r *Runtime) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stop)
	done := r.done
	r.mu.Unlock()

	<-done
}

func (r *Runtime) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	r.runCoalesced(ctx)
	for {
		r.mu.Lock()
		r.nextRunAt = r.Clock().Add(r.Interval)
		r.mu.Unlock()

		select {
		case <-ticker.C:
			r.runCoalesced(ctx)
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// TriggerNow requests an immediate pass. Callers arriving while a pass
// is already in flight share that pass's result instead of queueing a
// second one.
func (r *Runtime) TriggerNow(ctx context.Context) (*types.SyncRun, error) {
	v, err, _ := r.group.Do("pass", func() (interface{}, error) {
		return r.runPass(ctx), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.SyncRun), nil
}

func (r *Runtime) runCoalesced(ctx context.Context) {
	_, _ = r.TriggerNow(ctx)
}

// runPass executes one complete pass: acquire lock, sync projects, sync
// events, run lifecycle, release lock. Stage failures are isolated so a
// broken project sheet never blocks event intake.
func (r *Runtime) runPass(ctx context.Context) *types.SyncRun {
	run := &types.SyncRun{
		RunID:     uuid.NewString(),
		StartedAt: r.Clock().UTC(),
	}
	log := r.Logger.With("run_id", run.RunID)

	r.mu.Lock()
	r.inPass = true
	r.mu.Unlock()
	defer func() {
		run.FinishedAt = r.Clock().UTC()
		if run.Acquired {
			r.duration.Record(ctx, run.FinishedAt.Sub(run.StartedAt).Seconds())
		}
		r.mu.Lock()
		r.inPass = false
		r.lastRun = run
		r.mu.Unlock()

		if r.Store != nil {
			if err := r.Store.RecordSyncRun(ctx, run); err != nil {
				log.Warn("failed to record sync run", "err", err)
			}
		}
	}()

	acquired, err := r.Store.TryAdvisoryLock(ctx, r.LockKey)
	if err != nil {
		run.Error = fmt.Sprintf("acquiring lock: %v", err)
		log.Error("pass aborted", "err", err)
		r.count(ctx, "error")
		return run
	}
	if !acquired {
		log.Info("pass skipped, lock held elsewhere", "lock", r.LockKey)
		r.skipped.Add(ctx, 1)
		return run
	}
	run.Acquired = true
	defer func() {
		if err := r.Store.ReleaseAdvisoryLock(ctx, r.LockKey); err != nil {
			log.Warn("failed to release lock", "lock", r.LockKey, "err", err)
		}
	}()

	var stageErrs []error

	if r.Projects != nil {
		stats, err := r.Projects.Run(ctx)
		run.Projects = stats
		if err != nil {
			stageErrs = append(stageErrs, fmt.Errorf("projects: %w", err))
			log.Error("project sync failed", "err", err)
		}
	}

	if r.Events != nil {
		stats, err := r.Events.Run(ctx)
		run.Events = stats
		if err != nil {
			stageErrs = append(stageErrs, fmt.Errorf("events: %w", err))
			log.Error("event sync failed", "err", err)
		}
	}

	if r.Lifecycle != nil {
		completed, err := r.Lifecycle.Run(ctx)
		run.Completed = completed
		if err != nil {
			stageErrs = append(stageErrs, fmt.Errorf("lifecycle: %w", err))
			log.Error("lifecycle pass failed", "err", err)
		}
	}

	if len(stageErrs) > 0 {
		run.Error = errors.Join(stageErrs...).Error()
		r.count(ctx, "error")
		if r.Notifier != nil {
			r.Notifier.Notify(ctx, notify.Event{
				Kind:    notify.KindSyncFailure,
				Subject: run.RunID,
				Body:    fmt.Sprintf("sync pass failed: %s", run.Error),
			})
		}
		return run
	}

	log.Info("pass complete",
		"projects_pulled", run.Projects.Pulled, "projects_pushed", run.Projects.Pushed,
		"events_created", run.Events.Created, "events_skipped", run.Events.Skipped,
		"lifecycle_completed", run.Completed,
		"duration", r.Clock().UTC().Sub(run.StartedAt))
	r.count(ctx, "ok")
	return run
}

func (r *Runtime) count(ctx context.Context, outcome string) {
	r.passes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Status describes the loop for operator surfaces.
type Status struct {
	Running   bool
	InPass    bool
	NextRunIn time.Duration
	LastRun   *types.SyncRun
}

// Status reports the current loop state.
func (r *Runtime) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{Running: r.running, InPass: r.inPass, LastRun: r.lastRun}
	if r.running && !r.nextRunAt.IsZero() {
		if d := r.nextRunAt.Sub(r.Clock()); d > 0 {
			st.NextRunIn = d
		}
	}
	return st
}
