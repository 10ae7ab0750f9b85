// Package store implements the MySQL-backed record store and the named
// advisory lock used to coordinate sync passes across process instances.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"

	"github.com/fieldday/eventsync/internal/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the shared MySQL database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// lockMu guards lockConns. MySQL named locks are session-scoped, so
	// each held lock pins a dedicated connection until release.
	lockMu    sync.Mutex
	lockConns map[string]*sql.Conn
}

// Open connects to the database, verifies connectivity with bounded
// retry, and bootstraps the schema.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(time.Hour)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = 15 * time.Second
	if err := backoff.Retry(func() error { return db.PingContext(ctx) }, backoff.WithContext(bo, ctx)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}

	s := &Store{
		db:        db,
		logger:    logger,
		lockConns: make(map[string]*sql.Conn),
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases all held locks and the underlying pool.
func (s *Store) Close() error {
	s.lockMu.Lock()
	for key, conn := range s.lockConns {
		_ = conn.Close()
		delete(s.lockConns, key)
	}
	s.lockMu.Unlock()
	return s.db.Close()
}

// migrate creates tables idempotently.
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrating schema: %w", err)
		}
	}
	return nil
}

const eventColumns = `id, external_id, organization_name, contact_name, email, phone,
	location, expected_attendance, notes, status, event_date, submitted_on,
	sheet_row_index, last_app_content_hash, last_sheet_content_hash,
	last_pushed_to_sheet_at, last_pulled_from_sheet_at, last_synced_at,
	sync_status, created_at, updated_at`

// ListEventRequests returns every event request, oldest first.
func (s *Store) ListEventRequests(ctx context.Context) ([]*types.EventRequest, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM event_requests ORDER BY id`)
}

// ListEventRequestsByStatus returns event requests in one workflow state.
func (s *Store) ListEventRequestsByStatus(ctx context.Context, status types.RequestStatus) ([]*types.EventRequest, error) {
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM event_requests WHERE status = ? ORDER BY id`, string(status))
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*types.EventRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: querying event requests: %w", err)
	}
	defer rows.Close()

	var out []*types.EventRequest
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEvent(rows *sql.Rows) (*types.EventRequest, error) {
	var (
		e                            types.EventRequest
		notes                        sql.NullString
		eventDate, submittedOn       sql.NullTime
		pushedAt, pulledAt, syncedAt sql.NullTime
	)
	err := rows.Scan(&e.ID, &e.ExternalID, &e.OrganizationName, &e.ContactName, &e.Email, &e.Phone,
		&e.Location, &e.ExpectedAttendance, &notes, &e.Status, &eventDate, &submittedOn,
		&e.SheetRowIndex, &e.LastAppContentHash, &e.LastSheetContentHash,
		&pushedAt, &pulledAt, &syncedAt,
		&e.SyncStatus, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: scanning event request: %w", err)
	}
	e.Notes = notes.String
	if eventDate.Valid {
		e.EventDate = eventDate.Time.UTC()
	}
	if submittedOn.Valid {
		e.SubmittedOn = submittedOn.Time.UTC()
	}
	e.LastPushedToSheetAt = nullTimePtr(pushedAt)
	e.LastPulledFromSheetAt = nullTimePtr(pulledAt)
	e.LastSyncedAt = nullTimePtr(syncedAt)
	return &e, nil
}

// FindEventRequestByExternalID returns the event request with the given
// external ID, or an error wrapping ErrNotFound. Served by the unique
// key on external_id.
func (s *Store) FindEventRequestByExternalID(ctx context.Context, externalID string) (*types.EventRequest, error) {
	matches, err := s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM event_requests WHERE external_id = ?`, externalID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("store: event request %q: %w", externalID, ErrNotFound)
	}
	return matches[0], nil
}

// InsertEventRequestIgnoringConflict inserts a new event request keyed
// on the unique external_id, doing nothing on conflict. Returns true iff
// a row was created. This is the insert-only guarantee: an existing
// record is never touched here.
func (s *Store) InsertEventRequestIgnoringConflict(ctx context.Context, e *types.EventRequest) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO event_requests
			(external_id, organization_name, contact_name, email, phone,
			 location, expected_attendance, notes, status, event_date, submitted_on,
			 sheet_row_index, last_app_content_hash, last_sheet_content_hash,
			 last_pulled_from_sheet_at, last_synced_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ExternalID, e.OrganizationName, e.ContactName, e.Email, e.Phone,
		e.Location, e.ExpectedAttendance, e.Notes, string(e.Status),
		nullDate(e.EventDate), nullDateTime(e.SubmittedOn),
		e.SheetRowIndex, e.LastAppContentHash, e.LastSheetContentHash,
		ptrTime(e.LastPulledFromSheetAt), ptrTime(e.LastSyncedAt), string(e.SyncStatus))
	if err != nil {
		return false, fmt.Errorf("store: inserting event request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: insert result: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return true, nil
}

// UpdateEventRequestMeta updates only sync bookkeeping. Business fields
// of an imported record are off limits to sync by contract.
func (s *Store) UpdateEventRequestMeta(ctx context.Context, id int64, meta types.SyncMeta) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE event_requests
		SET sheet_row_index = ?, last_app_content_hash = ?, last_sheet_content_hash = ?,
		    last_pushed_to_sheet_at = ?, last_pulled_from_sheet_at = ?, last_synced_at = ?,
		    sync_status = ?
		WHERE id = ?`,
		meta.SheetRowIndex, meta.LastAppContentHash, meta.LastSheetContentHash,
		ptrTime(meta.LastPushedToSheetAt), ptrTime(meta.LastPulledFromSheetAt), ptrTime(meta.LastSyncedAt),
		string(meta.SyncStatus), id)
	if err != nil {
		return fmt.Errorf("store: updating event request meta %d: %w", id, err)
	}
	return nil
}

// UpdateEventRequestStatus advances an event request's workflow state.
func (s *Store) UpdateEventRequestStatus(ctx context.Context, id int64, status types.RequestStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE event_requests SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("store: updating event request status %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: event request %d: %w", id, ErrNotFound)
	}
	return nil
}

const projectColumns = `id, external_id, name, owner, email, status, target_date,
	sub_tasks, internal_notes, sheet_row_index, last_app_content_hash,
	last_sheet_content_hash, last_pushed_to_sheet_at, last_pulled_from_sheet_at,
	last_synced_at, sync_status, created_at, updated_at`

// ListProjects returns every project, oldest first.
func (s *Store) ListProjects(ctx context.Context) ([]*types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: querying projects: %w", err)
	}
	defer rows.Close()

	var out []*types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProject(rows *sql.Rows) (*types.Project, error) {
	var (
		p                            types.Project
		subTasks, internalNotes      sql.NullString
		targetDate                   sql.NullTime
		pushedAt, pulledAt, syncedAt sql.NullTime
	)
	err := rows.Scan(&p.ID, &p.ExternalID, &p.Name, &p.Owner, &p.Email, &p.Status, &targetDate,
		&subTasks, &internalNotes, &p.SheetRowIndex, &p.LastAppContentHash,
		&p.LastSheetContentHash, &pushedAt, &pulledAt,
		&syncedAt, &p.SyncStatus, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: scanning project: %w", err)
	}
	p.InternalNotes = internalNotes.String
	if targetDate.Valid {
		p.TargetDate = targetDate.Time.UTC()
	}
	if subTasks.Valid && subTasks.String != "" {
		if err := json.Unmarshal([]byte(subTasks.String), &p.SubTasks); err != nil {
			return nil, fmt.Errorf("store: decoding sub_tasks for project %d: %w", p.ID, err)
		}
	}
	p.LastPushedToSheetAt = nullTimePtr(pushedAt)
	p.LastPulledFromSheetAt = nullTimePtr(pulledAt)
	p.LastSyncedAt = nullTimePtr(syncedAt)
	return &p, nil
}

// CreateProject inserts a new project.
func (s *Store) CreateProject(ctx context.Context, p *types.Project) error {
	subTasks, err := json.Marshal(p.SubTasks)
	if err != nil {
		return fmt.Errorf("store: encoding sub_tasks: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects
			(external_id, name, owner, email, status, target_date, sub_tasks,
			 internal_notes, sheet_row_index, last_app_content_hash,
			 last_sheet_content_hash, last_pulled_from_sheet_at, last_synced_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ExternalID, p.Name, p.Owner, p.Email, p.Status, nullDate(p.TargetDate), string(subTasks),
		p.InternalNotes, p.SheetRowIndex, p.LastAppContentHash,
		p.LastSheetContentHash, ptrTime(p.LastPulledFromSheetAt), ptrTime(p.LastSyncedAt),
		string(p.SyncStatus))
	if err != nil {
		return fmt.Errorf("store: inserting project: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		p.ID = id
	}
	return nil
}

// projectColumnsByField whitelists the partial-update keys UpdateProject
// accepts, mapping them to columns.
var projectColumnsByField = map[string]string{
	"name":                      "name",
	"owner":                     "owner",
	"email":                     "email",
	"status":                    "status",
	"target_date":               "target_date",
	"sub_tasks":                 "sub_tasks",
	"internal_notes":            "internal_notes",
	"sheet_row_index":           "sheet_row_index",
	"last_app_content_hash":     "last_app_content_hash",
	"last_sheet_content_hash":   "last_sheet_content_hash",
	"last_pushed_to_sheet_at":   "last_pushed_to_sheet_at",
	"last_pulled_from_sheet_at": "last_pulled_from_sheet_at",
	"last_synced_at":            "last_synced_at",
	"sync_status":               "sync_status",
}

// UpdateProject applies a partial update. Unknown keys are rejected
// rather than ignored — a typo here would silently drop a write.
func (s *Store) UpdateProject(ctx context.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	fields := make([]string, 0, len(updates))
	for f := range updates {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	setClauses := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	for _, f := range fields {
		col, ok := projectColumnsByField[f]
		if !ok {
			return fmt.Errorf("store: unknown project field %q", f)
		}
		v, err := encodeProjectValue(f, updates[f])
		if err != nil {
			return err
		}
		setClauses = append(setClauses, col+" = ?")
		args = append(args, v)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET `+strings.Join(setClauses, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("store: updating project %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 both for a missing row and a no-op update;
		// distinguish with an existence probe.
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("store: project %d: %w", id, ErrNotFound)
			}
			return fmt.Errorf("store: probing project %d: %w", id, err)
		}
	}
	return nil
}

func encodeProjectValue(field string, v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case []types.SubTask:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("store: encoding sub_tasks: %w", err)
		}
		return string(raw), nil
	case types.SyncStatus:
		return string(t), nil
	case types.RequestStatus:
		return string(t), nil
	case time.Time:
		if field == "target_date" {
			return nullDate(t), nil
		}
		return nullDateTime(t), nil
	default:
		return v, nil
	}
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}

func ptrTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format("2006-01-02")
}

func nullDateTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
