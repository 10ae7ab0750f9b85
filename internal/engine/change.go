package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/fieldday/eventsync/internal/sheetcodec"
	"github.com/fieldday/eventsync/internal/types"
)

// Change classifies one side of a record against its baseline hash.
type Change int

const (
	// Unchanged: the side matches the baseline from the last sync.
	Unchanged Change = iota
	// Changed: the side diverged from its baseline.
	Changed
	// NoBaseline: no baseline exists yet (record predates hashing or
	// was never synced). Treated as changed by callers: without a
	// baseline there is no evidence the sides agree.
	NoBaseline
)

// Classify compares a side's current content hash to its baseline.
func Classify(baseline, current string) Change {
	switch {
	case baseline == "":
		return NoBaseline
	case baseline == current:
		return Unchanged
	default:
		return Changed
	}
}

// Diverged reports whether a classification means the side moved.
func (c Change) Diverged() bool { return c != Unchanged }

// contentHash produces a deterministic hash over a canonical
// field-separated byte string. Only sheet-visible fields may be fed in;
// sync metadata would make the hash churn on every pass.
func contentHash(fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(sum[:16])
}

// EventContentHash hashes the sheet-visible fields of an event request.
func EventContentHash(e *types.EventRequest) string {
	return contentHash(
		strings.TrimSpace(e.OrganizationName),
		strings.TrimSpace(e.ContactName),
		strings.ToLower(strings.TrimSpace(e.Email)),
		e.Phone,
		sheetcodec.EncodeDate(e.EventDate),
		sheetcodec.EncodeDateTime(e.SubmittedOn),
		strings.TrimSpace(e.Location),
		strconv.Itoa(e.ExpectedAttendance),
		string(e.Status),
		strings.TrimSpace(e.Notes),
	)
}

// ProjectContentHash hashes the sheet-visible fields of a project.
// InternalNotes and sub-task annotations are app-owned and excluded:
// they never travel through the sheet, so they must not register as
// sheet-side divergence.
func ProjectContentHash(p *types.Project) string {
	visible := make([]types.SubTask, len(p.SubTasks))
	for i, st := range p.SubTasks {
		visible[i] = types.SubTask{Title: st.Title, Owner: st.Owner, Status: st.Status}
	}
	return contentHash(
		strings.TrimSpace(p.Name),
		strings.TrimSpace(p.Owner),
		strings.ToLower(strings.TrimSpace(p.Email)),
		strings.TrimSpace(p.Status),
		sheetcodec.EncodeDate(p.TargetDate),
		sheetcodec.FormatSubTasks(visible),
	)
}
