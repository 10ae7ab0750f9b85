// Package identity decides whether an incoming sheet row represents an
// already-imported record or a new one.
//
// Matching runs as a strict-priority cascade; the first tier that hits
// wins. Every fuzzy tier requires an exact event-date match: two
// submissions from the same contact for two different dates are always
// distinct records, no matter how similar everything else looks.
package identity

import (
	"time"

	"github.com/fieldday/eventsync/internal/types"
)

// MatchTier identifies which cascade tier produced a match.
type MatchTier int

const (
	// TierNone means no candidate matched; the row is a new record.
	TierNone MatchTier = iota
	// TierRowIndex matched on the stored sheet row anchor.
	TierRowIndex
	// TierSubmissionTriple matched email + submission time + event date.
	TierSubmissionTriple
	// TierEmailDateOrg matched email + event date + org-name similarity.
	TierEmailDateOrg
	// TierFuzzy matched event date plus one of email/phone/name with a
	// tier-specific similarity floor.
	TierFuzzy
)

func (t MatchTier) String() string {
	switch t {
	case TierRowIndex:
		return "row-index"
	case TierSubmissionTriple:
		return "submission-triple"
	case TierEmailDateOrg:
		return "email-date-org"
	case TierFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Empirically chosen thresholds, carried over from production duplicate
// data. TODO: recalibrate against a labeled duplicate corpus; these have
// never been validated beyond spot checks.
const (
	// submissionWindow is the tolerance between the recorded creation
	// time and the incoming submission timestamp in tier 2.
	submissionWindow = 5 * time.Minute

	simEmailDateOrg = 0.6
	simFuzzyEmail   = 0.5
	simFuzzyPhone   = 0.7
	simFuzzyName    = 0.8
)

// Resolver matches incoming rows against known event requests.
type Resolver struct{}

// NewResolver returns a Resolver.
func NewResolver() *Resolver { return &Resolver{} }

// Match finds the existing record the incoming row refers to, if any.
// candidates must be the full set of previously-imported records for the
// entity. Returns the match and the tier that produced it, or
// (nil, TierNone).
func (r *Resolver) Match(incoming *types.EventRequest, candidates []*types.EventRequest) (*types.EventRequest, MatchTier) {
	// Tier 1: row-index anchor. Fast and stable as long as no rows were
	// inserted or removed upstream of this one.
	if incoming.SheetRowIndex > 0 {
		for _, c := range candidates {
			if c.SheetRowIndex == incoming.SheetRowIndex {
				return c, TierRowIndex
			}
		}
	}

	// Tier 2: submission-timestamp + email + event-date triple. The
	// triple keeps two different submissions by the same person apart.
	if incoming.Email != "" && !incoming.SubmittedOn.IsZero() {
		for _, c := range candidates {
			if !emailEqual(incoming.Email, c.Email) || !sameDay(incoming.EventDate, c.EventDate) {
				continue
			}
			if within(incoming.SubmittedOn, submissionAnchor(c), submissionWindow) {
				return c, TierSubmissionTriple
			}
		}
	}

	// Tier 3: email + event date + organization-name similarity.
	if incoming.Email != "" {
		for _, c := range candidates {
			if !emailEqual(incoming.Email, c.Email) || !sameDay(incoming.EventDate, c.EventDate) {
				continue
			}
			if Similarity(incoming.OrganizationName, c.OrganizationName) >= simEmailDateOrg {
				return c, TierEmailDateOrg
			}
		}
	}

	// Tier 4: fallback fuzzy. The event date is the one non-negotiable
	// anchor; any one of email/phone/name corroborates it, each with its
	// own similarity floor.
	for _, c := range candidates {
		if !sameDay(incoming.EventDate, c.EventDate) {
			continue
		}
		sim := Similarity(incoming.OrganizationName, c.OrganizationName)
		switch {
		case incoming.Email != "" && emailEqual(incoming.Email, c.Email) && sim >= simFuzzyEmail:
			return c, TierFuzzy
		case incoming.Phone != "" && incoming.Phone == c.Phone && sim >= simFuzzyPhone:
			return c, TierFuzzy
		case incoming.ContactName != "" && nameEqual(incoming.ContactName, c.ContactName) && sim >= simFuzzyName:
			return c, TierFuzzy
		}
	}

	return nil, TierNone
}

// submissionAnchor is the timestamp a candidate is matched on in tier 2:
// the recorded submission time, or the record's creation time for
// app-created records that never carried one.
func submissionAnchor(c *types.EventRequest) time.Time {
	if !c.SubmittedOn.IsZero() {
		return c.SubmittedOn
	}
	return c.CreatedAt
}

func emailEqual(a, b string) bool {
	return a != "" && equalFold(a, b)
}

func nameEqual(a, b string) bool {
	return a != "" && equalFold(a, b)
}

func equalFold(a, b string) bool {
	return normalizeName(a) == normalizeName(b)
}

// sameDay compares dates at day granularity; zero dates never match.
func sameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func within(a, b time.Time, window time.Duration) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}
