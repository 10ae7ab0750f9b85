// Package memory provides an in-memory store with the same contract as
// the MySQL store. It backs tests and local experimentation; it is not
// durable and its advisory locks only exclude within one process.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fieldday/eventsync/internal/store"
	"github.com/fieldday/eventsync/internal/types"
)

// Store keeps everything in maps under one mutex.
type Store struct {
	mu sync.Mutex

	nextID   int64
	events   map[int64]*types.EventRequest
	eventIDs map[string]int64 // external_id -> id
	projects map[int64]*types.Project
	locks    map[string]bool
	runs     []*types.SyncRun
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		nextID:   1,
		events:   make(map[int64]*types.EventRequest),
		eventIDs: make(map[string]int64),
		projects: make(map[int64]*types.Project),
		locks:    make(map[string]bool),
	}
}

func (s *Store) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// ListEventRequests returns copies of every event request, oldest first.
func (s *Store) ListEventRequests(_ context.Context) ([]*types.EventRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.EventRequest, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, copyEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListEventRequestsByStatus returns copies of event requests in one state.
func (s *Store) ListEventRequestsByStatus(_ context.Context, status types.RequestStatus) ([]*types.EventRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.EventRequest
	for _, e := range s.events {
		if e.Status == status {
			out = append(out, copyEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindEventRequestByExternalID returns a copy of the event request with
// the given external ID, or an error wrapping store.ErrNotFound.
func (s *Store) FindEventRequestByExternalID(_ context.Context, externalID string) (*types.EventRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.eventIDs[externalID]
	if !ok {
		return nil, fmt.Errorf("event request %q: %w", externalID, store.ErrNotFound)
	}
	return copyEvent(s.events[id]), nil
}

// InsertEventRequestIgnoringConflict inserts keyed on external_id,
// doing nothing when the ID already exists.
func (s *Store) InsertEventRequestIgnoringConflict(_ context.Context, e *types.EventRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.eventIDs[e.ExternalID]; exists {
		return false, nil
	}

	stored := copyEvent(e)
	stored.ID = s.allocID()
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	s.events[stored.ID] = stored
	s.eventIDs[stored.ExternalID] = stored.ID
	e.ID = stored.ID
	return true, nil
}

// UpdateEventRequestMeta replaces only the sync bookkeeping.
func (s *Store) UpdateEventRequestMeta(_ context.Context, id int64, meta types.SyncMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event request %d: %w", id, store.ErrNotFound)
	}
	e.SyncMeta = meta
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateEventRequestStatus advances the workflow state.
func (s *Store) UpdateEventRequestStatus(_ context.Context, id int64, status types.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event request %d: %w", id, store.ErrNotFound)
	}
	e.Status = status
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// ListProjects returns copies of every project, oldest first.
func (s *Store) ListProjects(_ context.Context) ([]*types.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, copyProject(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateProject inserts a new project.
func (s *Store) CreateProject(_ context.Context, p *types.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyProject(p)
	stored.ID = s.allocID()
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	s.projects[stored.ID] = stored
	p.ID = stored.ID
	return nil
}

// UpdateProject applies a partial update with the same field keys the
// MySQL store accepts.
func (s *Store) UpdateProject(_ context.Context, id int64, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project %d: %w", id, store.ErrNotFound)
	}

	for field, v := range updates {
		if err := applyProjectField(p, field, v); err != nil {
			return err
		}
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func applyProjectField(p *types.Project, field string, v interface{}) error {
	switch field {
	case "name":
		p.Name = v.(string)
	case "owner":
		p.Owner = v.(string)
	case "email":
		p.Email = v.(string)
	case "status":
		p.Status = v.(string)
	case "target_date":
		p.TargetDate = v.(time.Time)
	case "sub_tasks":
		tasks := v.([]types.SubTask)
		p.SubTasks = append([]types.SubTask(nil), tasks...)
	case "internal_notes":
		p.InternalNotes = v.(string)
	case "sheet_row_index":
		p.SheetRowIndex = v.(int)
	case "last_app_content_hash":
		p.LastAppContentHash = v.(string)
	case "last_sheet_content_hash":
		p.LastSheetContentHash = v.(string)
	case "last_pushed_to_sheet_at":
		p.LastPushedToSheetAt = timePtr(v)
	case "last_pulled_from_sheet_at":
		p.LastPulledFromSheetAt = timePtr(v)
	case "last_synced_at":
		p.LastSyncedAt = timePtr(v)
	case "sync_status":
		p.SyncStatus = v.(types.SyncStatus)
	default:
		return fmt.Errorf("unknown project field %q", field)
	}
	return nil
}

func timePtr(v interface{}) *time.Time {
	switch t := v.(type) {
	case *time.Time:
		return t
	case time.Time:
		return &t
	default:
		panic(fmt.Sprintf("unexpected time value %T", v))
	}
}

// TryAdvisoryLock acquires a process-local named lock non-blockingly.
func (s *Store) TryAdvisoryLock(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locks[key] {
		return false, nil
	}
	s.locks[key] = true
	return true, nil
}

// ReleaseAdvisoryLock releases a held lock; releasing an unheld lock is
// a no-op.
func (s *Store) ReleaseAdvisoryLock(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	return nil
}

// RecordSyncRun upserts one run record keyed on RunID.
func (s *Store) RecordSyncRun(_ context.Context, run *types.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *run
	for i, existing := range s.runs {
		if existing.RunID == run.RunID {
			s.runs[i] = &cp
			return nil
		}
	}
	s.runs = append(s.runs, &cp)
	return nil
}

// LatestSyncRuns returns the most recent runs, newest first.
func (s *Store) LatestSyncRuns(_ context.Context, limit int) ([]*types.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	out := make([]*types.SyncRun, len(s.runs))
	for i, r := range s.runs {
		cp := *r
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetEventRequest returns a copy by internal ID. Test helper.
func (s *Store) GetEventRequest(id int64) (*types.EventRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, false
	}
	return copyEvent(e), true
}

// GetProject returns a copy by ID. Test helper.
func (s *Store) GetProject(id int64) (*types.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, false
	}
	return copyProject(p), true
}

func copyEvent(e *types.EventRequest) *types.EventRequest {
	cp := *e
	return &cp
}

func copyProject(p *types.Project) *types.Project {
	cp := *p
	cp.SubTasks = append([]types.SubTask(nil), p.SubTasks...)
	return &cp
}
