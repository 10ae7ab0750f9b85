package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldday/eventsync/internal/engine"
	"github.com/fieldday/eventsync/internal/scheduler"
	"github.com/fieldday/eventsync/internal/sheets"
	"github.com/fieldday/eventsync/internal/store/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// blockingSheet parks the first header read until released, keeping a
// pass (and with it the advisory lock) in flight for as long as a test
// needs.
type blockingSheet struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingSheet() *blockingSheet {
	return &blockingSheet{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingSheet) ReadHeader(ctx context.Context, _ string) ([]string, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []string{"Project", "Owner", "Email", "Status", "Target Date", "Sub-Tasks", "Last Modified"}, nil
}

func (b *blockingSheet) ReadRows(context.Context, string) ([][]string, error) { return nil, nil }
func (b *blockingSheet) UpdateRows(context.Context, string, [][]string) error { return nil }
func (b *blockingSheet) BatchUpdate(context.Context, []sheets.RangeUpdate) error {
	return nil
}
func (b *blockingSheet) AppendRows(context.Context, string, [][]string) error { return nil }

func TestPassSkippedWhenLockHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	held, err := st.TryAdvisoryLock(ctx, "eventsync.pass")
	require.NoError(t, err)
	require.True(t, held)

	rt := scheduler.New(scheduler.Options{Store: st, Logger: quietLogger()})
	run, err := rt.TriggerNow(ctx)
	require.NoError(t, err)
	assert.False(t, run.Acquired)
	assert.Empty(t, run.Error)

	runs, err := st.LatestSyncRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1, "skipped passes are still audited")
	assert.False(t, runs[0].Acquired)
}

func TestPassAcquiresAndReleasesLock(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	rt := scheduler.New(scheduler.Options{Store: st, Logger: quietLogger()})
	run, err := rt.TriggerNow(ctx)
	require.NoError(t, err)
	assert.True(t, run.Acquired)
	assert.Empty(t, run.Error)
	assert.False(t, run.FinishedAt.IsZero())

	// The lock must be free again even though the pass did no work.
	free, err := st.TryAdvisoryLock(ctx, "eventsync.pass")
	require.NoError(t, err)
	assert.True(t, free)
}

func TestConcurrentRuntimesExcludeEachOther(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	sheet := newBlockingSheet()

	rng := engine.SheetRange{Tab: "Projects", HeaderRow: 1, DataStartRow: 2, Width: 7}
	projects := engine.NewProjectSync(sheet, st, rng, quietLogger())

	rt1 := scheduler.New(scheduler.Options{Projects: projects, Store: st, Logger: quietLogger()})
	rt2 := scheduler.New(scheduler.Options{Store: st, Logger: quietLogger()})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = rt1.TriggerNow(ctx)
	}()

	// Wait until rt1 holds the lock and is parked mid-pass.
	select {
	case <-sheet.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first pass never started")
	}

	run, err := rt2.TriggerNow(ctx)
	require.NoError(t, err)
	assert.False(t, run.Acquired, "second process must not sync while the first holds the lock")

	close(sheet.release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("first pass never finished")
	}

	run, err = rt2.TriggerNow(ctx)
	require.NoError(t, err)
	assert.True(t, run.Acquired, "lock is free once the first pass completes")
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	rt := scheduler.New(scheduler.Options{Store: st, Logger: quietLogger(), Interval: time.Hour})
	require.NoError(t, rt.Start(ctx))
	assert.ErrorIs(t, rt.Start(ctx), scheduler.ErrAlreadyRunning)

	assert.Eventually(t, func() bool {
		runs, err := st.LatestSyncRuns(ctx, 1)
		return err == nil && len(runs) == 1
	}, 5*time.Second, 10*time.Millisecond, "startup pass should record a run")

	assert.True(t, rt.Status().Running)

	rt.Stop()
	assert.False(t, rt.Status().Running)
	rt.Stop() // idempotent
}
