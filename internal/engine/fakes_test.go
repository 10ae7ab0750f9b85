package engine_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/fieldday/eventsync/internal/notify"
	"github.com/fieldday/eventsync/internal/sheets"
)

// fakeSheet is an in-memory SheetClient. Ranges are ignored: each fake
// serves exactly one tab. Appends extend rows so a follow-up pass sees
// them; batch updates are recorded for assertions.
type fakeSheet struct {
	header []string
	rows   [][]string

	updates []sheets.RangeUpdate
	batches [][]sheets.RangeUpdate
	appends [][]string

	batchErr  error
	appendErr error
}

func (f *fakeSheet) ReadHeader(context.Context, string) ([]string, error) {
	return f.header, nil
}

func (f *fakeSheet) ReadRows(context.Context, string) ([][]string, error) {
	return f.rows, nil
}

func (f *fakeSheet) UpdateRows(_ context.Context, writeRange string, values [][]string) error {
	f.updates = append(f.updates, sheets.RangeUpdate{Range: writeRange, Values: values})
	return nil
}

func (f *fakeSheet) BatchUpdate(_ context.Context, updates []sheets.RangeUpdate) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	f.batches = append(f.batches, updates)
	return nil
}

func (f *fakeSheet) AppendRows(_ context.Context, _ string, values [][]string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends = append(f.appends, values...)
	f.rows = append(f.rows, values...)
	return nil
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
