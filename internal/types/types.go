// Package types defines core data structures for the eventsync engine.
package types

import (
	"strings"
	"time"
)

// RequestStatus is the workflow state of an event request.
type RequestStatus string

const (
	StatusNew       RequestStatus = "new"
	StatusInProcess RequestStatus = "in_process"
	StatusScheduled RequestStatus = "scheduled"
	StatusCompleted RequestStatus = "completed"
	StatusDeclined  RequestStatus = "declined"
)

// ValidRequestStatus reports whether s is a known request status.
func ValidRequestStatus(s RequestStatus) bool {
	switch s {
	case StatusNew, StatusInProcess, StatusScheduled, StatusCompleted, StatusDeclined:
		return true
	}
	return false
}

// SyncStatus describes how a record stands relative to its sheet row.
type SyncStatus string

const (
	SyncUnsynced SyncStatus = "unsynced"
	SyncSynced   SyncStatus = "synced"
	SyncConflict SyncStatus = "conflict"
)

// SyncMeta carries the synchronization bookkeeping shared by every
// syncable record. Content hashes are baselines captured at the end of
// the previous successful pass; they are only updated together with the
// write they describe.
type SyncMeta struct {
	// SheetRowIndex is the 1-based row number at last observation.
	// It is an identity hint, never trusted alone: rows can be
	// reordered or deleted upstream.
	SheetRowIndex int `json:"sheet_row_index"`

	LastAppContentHash   string `json:"last_app_content_hash,omitempty"`
	LastSheetContentHash string `json:"last_sheet_content_hash,omitempty"`

	LastPushedToSheetAt   *time.Time `json:"last_pushed_to_sheet_at,omitempty"`
	LastPulledFromSheetAt *time.Time `json:"last_pulled_from_sheet_at,omitempty"`
	LastSyncedAt          *time.Time `json:"last_synced_at,omitempty"`

	SyncStatus SyncStatus `json:"sync_status"`
}

// EventRequest is the insert-only entity: an intake submission for an
// event. Once imported, its business fields are never mutated by sync;
// only SyncMeta may be touched.
type EventRequest struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`

	OrganizationName string        `json:"organization_name"`
	ContactName      string        `json:"contact_name"`
	Email            string        `json:"email"`
	Phone            string        `json:"phone"`
	Location         string        `json:"location,omitempty"`
	ExpectedAttendance int         `json:"expected_attendance,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	Status           RequestStatus `json:"status"`

	// EventDate is the requested event day (time-of-day is ignored).
	EventDate time.Time `json:"event_date"`
	// SubmittedOn is when the form submission was recorded upstream.
	SubmittedOn time.Time `json:"submitted_on"`

	SyncMeta

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubTask is one entry of a project's task breakdown. Sub-tasks travel
// through the sheet as a single delimited cell ("Title: Owner (Status)").
// Annotation exists only on the app side and is never written to or
// clobbered by the sheet.
type SubTask struct {
	Title      string `json:"title"`
	Owner      string `json:"owner,omitempty"`
	Status     string `json:"status,omitempty"`
	Annotation string `json:"annotation,omitempty"`
}

// Project is the bidirectional entity: edits flow both ways between the
// app store and the sheet, with hash baselines deciding direction.
type Project struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`

	Name       string    `json:"name"`
	Owner      string    `json:"owner,omitempty"`
	Email      string    `json:"email,omitempty"`
	Status     string    `json:"status,omitempty"`
	TargetDate time.Time `json:"target_date"`
	SubTasks   []SubTask `json:"sub_tasks,omitempty"`

	// InternalNotes is app-owned: added manually after import and never
	// overwritten by a pull from the sheet.
	InternalNotes string `json:"internal_notes,omitempty"`

	SyncMeta

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubTaskByTitle returns the sub-task with the given title (case-folded),
// or nil.
func (p *Project) SubTaskByTitle(title string) *SubTask {
	for i := range p.SubTasks {
		if strings.EqualFold(p.SubTasks[i].Title, title) {
			return &p.SubTasks[i]
		}
	}
	return nil
}

// SyncRun is one audit record of a complete scheduler pass.
type SyncRun struct {
	RunID      string     `json:"run_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Acquired   bool       `json:"acquired"`
	Error      string     `json:"error,omitempty"`
	Projects   PassStats  `json:"projects"`
	Events     PassStats  `json:"events"`
	Completed  int        `json:"completed"` // lifecycle transitions applied
}

// PassStats accumulates per-entity statistics for one pass.
type PassStats struct {
	Pulled    int `json:"pulled"`
	Pushed    int `json:"pushed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Conflicts int `json:"conflicts"`
	Errors    int `json:"errors"`
}

// Add accumulates other into s.
func (s *PassStats) Add(other PassStats) {
	s.Pulled += other.Pulled
	s.Pushed += other.Pushed
	s.Created += other.Created
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Conflicts += other.Conflicts
	s.Errors += other.Errors
}
