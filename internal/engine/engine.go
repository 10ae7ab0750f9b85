// Package engine implements the synchronization passes between the
// internal store and the intake spreadsheet.
//
// Two strategies share its plumbing: ProjectSync reconciles the project
// sheet bidirectionally, EventSync ingests intake rows insert-only. Both
// follow the read→resolve identity→detect change→write pattern, and both
// treat a bad row as skip-and-log, never as a pass failure.
package engine

import (
	"context"
	"fmt"

	"github.com/fieldday/eventsync/internal/sheets"
	"github.com/fieldday/eventsync/internal/types"
)

// SheetClient is the spreadsheet surface the engine needs. Implemented
// by *sheets.Client; tests substitute a fake.
type SheetClient interface {
	ReadHeader(ctx context.Context, readRange string) ([]string, error)
	ReadRows(ctx context.Context, readRange string) ([][]string, error)
	UpdateRows(ctx context.Context, writeRange string, values [][]string) error
	BatchUpdate(ctx context.Context, updates []sheets.RangeUpdate) error
	AppendRows(ctx context.Context, appendRange string, values [][]string) error
}

// Store is the storage surface the engine needs. Implemented by
// *store.Store; tests substitute the in-memory store.
type Store interface {
	// Event requests (insert-only entity)
	ListEventRequests(ctx context.Context) ([]*types.EventRequest, error)
	ListEventRequestsByStatus(ctx context.Context, status types.RequestStatus) ([]*types.EventRequest, error)
	// FindEventRequestByExternalID returns the record carrying the given
	// external ID, or a not-found error.
	FindEventRequestByExternalID(ctx context.Context, externalID string) (*types.EventRequest, error)
	// InsertEventRequestIgnoringConflict inserts keyed on external_id
	// with do-nothing-on-conflict semantics. Returns true iff a new row
	// was created.
	InsertEventRequestIgnoringConflict(ctx context.Context, e *types.EventRequest) (bool, error)
	UpdateEventRequestMeta(ctx context.Context, id int64, meta types.SyncMeta) error
	UpdateEventRequestStatus(ctx context.Context, id int64, status types.RequestStatus) error

	// Projects (bidirectional entity)
	ListProjects(ctx context.Context) ([]*types.Project, error)
	CreateProject(ctx context.Context, p *types.Project) error
	UpdateProject(ctx context.Context, id int64, updates map[string]interface{}) error

	// Cross-process coordination
	TryAdvisoryLock(ctx context.Context, key string) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key string) error

	// Audit trail
	RecordSyncRun(ctx context.Context, run *types.SyncRun) error
	LatestSyncRuns(ctx context.Context, limit int) ([]*types.SyncRun, error)
}

// SheetRange describes where an entity lives in the spreadsheet.
type SheetRange struct {
	// Tab is the sheet tab name (e.g. "Event Requests").
	Tab string
	// HeaderRow is the 1-based row holding column headers.
	HeaderRow int
	// DataStartRow is the 1-based first data row.
	DataStartRow int
	// Width is the number of columns the entity occupies.
	Width int
}

// HeaderRange returns the A1 range of the header row.
func (r SheetRange) HeaderRange() string {
	return fmt.Sprintf("%s!A%d:%s%d", r.Tab, r.HeaderRow, columnLetter(r.Width), r.HeaderRow)
}

// DataRange returns the open-ended A1 range of all data rows.
func (r SheetRange) DataRange() string {
	return fmt.Sprintf("%s!A%d:%s", r.Tab, r.DataStartRow, columnLetter(r.Width))
}

// RowRange returns the A1 range of a single data row.
func (r SheetRange) RowRange(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", r.Tab, row, columnLetter(r.Width), row)
}

// columnLetter converts a 1-based column count to its sheet letter.
func columnLetter(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+n%26)) + s
		n /= 26
	}
	return s
}
