package engine

import (
	"fmt"
	"time"
)

// Side names the winner of a conflict resolution.
type Side int

const (
	// SideApp means the internal store's version wins.
	SideApp Side = iota
	// SideSheet means the spreadsheet's version wins.
	SideSheet
)

func (s Side) String() string {
	if s == SideSheet {
		return "sheet"
	}
	return "app"
}

// Resolution is the outcome of resolving a both-sides-diverged record:
// a winner and a human-readable rationale for the audit log.
type Resolution struct {
	Winner Side
	Reason string
}

// ResolveConflict decides which side wins when both the store and the
// sheet diverged from their baselines in the same pass. The side with
// the strictly more recent modification timestamp wins; on a tie — and
// when the sheet carries no usable timestamp — the app wins, because the
// store is the system of record for active workflow edits while the
// sheet is primarily an intake and reporting view.
//
// The losing side's pending write is discarded for this pass only.
// Because baselines are updated only for the side that was written, a
// discarded edit re-registers as changed on the next pass if re-applied.
func ResolveConflict(appModified, sheetModified time.Time) Resolution {
	if sheetModified.IsZero() {
		return Resolution{
			Winner: SideApp,
			Reason: "both sides changed; sheet has no modification timestamp, app wins by default",
		}
	}
	if sheetModified.After(appModified) {
		return Resolution{
			Winner: SideSheet,
			Reason: fmt.Sprintf("both sides changed; sheet modified %s, after app %s",
				sheetModified.UTC().Format(time.RFC3339), appModified.UTC().Format(time.RFC3339)),
		}
	}
	if appModified.After(sheetModified) {
		return Resolution{
			Winner: SideApp,
			Reason: fmt.Sprintf("both sides changed; app modified %s, after sheet %s",
				appModified.UTC().Format(time.RFC3339), sheetModified.UTC().Format(time.RFC3339)),
		}
	}
	return Resolution{
		Winner: SideApp,
		Reason: "both sides changed at the same instant; app wins the tie",
	}
}
