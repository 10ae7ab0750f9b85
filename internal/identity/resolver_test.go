package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fieldday/eventsync/internal/types"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"exact", "Lincoln High School", "Lincoln High School", 1.0, 1.0},
		{"exact case folded", "lincoln high school", "LINCOLN HIGH SCHOOL", 1.0, 1.0},
		{"containment", "Lincoln High", "Lincoln High School", 0.9, 0.9},
		{"shared words with keyword bonus", "Lincoln High School", "Lincoln Senior High", 0.6, 0.95},
		{"unrelated", "Acme Corp", "Globex Industries", 0.0, 0.1},
		{"empty", "", "Lincoln High", 0.0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min, "Similarity(%q, %q)", tt.a, tt.b)
			assert.LessOrEqual(t, got, tt.max, "Similarity(%q, %q)", tt.a, tt.b)
		})
	}
}

func TestSimilarityKeywordBonusCapped(t *testing.T) {
	// Both institutional, heavy overlap: bonus must not push past 1.0.
	got := Similarity("Washington Middle School", "Washington Middle School East")
	assert.LessOrEqual(t, got, 1.0)
}

func eventOn(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMatchRowIndexAnchor(t *testing.T) {
	r := NewResolver()
	known := []*types.EventRequest{
		{ID: 1, Email: "other@x.org", SyncMeta: types.SyncMeta{SheetRowIndex: 7}},
	}
	incoming := &types.EventRequest{Email: "a@x.org", SyncMeta: types.SyncMeta{SheetRowIndex: 7}}

	got, tier := r.Match(incoming, known)
	assert.Equal(t, TierRowIndex, tier)
	assert.Equal(t, int64(1), got.ID)
}

func TestMatchSubmissionTriple(t *testing.T) {
	r := NewResolver()
	submitted := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	known := []*types.EventRequest{
		{
			ID:          2,
			Email:       "a@x.org",
			EventDate:   eventOn(2024, 3, 1),
			SubmittedOn: submitted,
		},
	}
	incoming := &types.EventRequest{
		Email:       "A@X.org",
		EventDate:   eventOn(2024, 3, 1),
		SubmittedOn: submitted.Add(3 * time.Minute),
		SyncMeta:    types.SyncMeta{SheetRowIndex: 99},
	}

	got, tier := r.Match(incoming, known)
	assert.Equal(t, TierSubmissionTriple, tier)
	assert.Equal(t, int64(2), got.ID)

	// Outside the window the triple no longer holds.
	incoming.SubmittedOn = submitted.Add(10 * time.Minute)
	_, tier = r.Match(incoming, known)
	assert.NotEqual(t, TierSubmissionTriple, tier)
}

// Records created in the app never pass through the intake sheet, so
// their SubmittedOn is zero; tier 2 anchors those on CreatedAt instead.
func TestMatchSubmissionTripleAppCreated(t *testing.T) {
	r := NewResolver()
	created := time.Date(2024, 2, 5, 14, 0, 0, 0, time.UTC)
	known := []*types.EventRequest{
		{
			ID:        7,
			Email:     "a@x.org",
			EventDate: eventOn(2024, 3, 1),
			CreatedAt: created,
		},
	}
	incoming := &types.EventRequest{
		Email:       "a@x.org",
		EventDate:   eventOn(2024, 3, 1),
		SubmittedOn: created.Add(3 * time.Minute),
	}

	got, tier := r.Match(incoming, known)
	assert.Equal(t, TierSubmissionTriple, tier)
	assert.Equal(t, int64(7), got.ID)

	// With no org or contact signals, nothing below tier 2 can carry it.
	incoming.SubmittedOn = created.Add(time.Hour)
	got, tier = r.Match(incoming, known)
	assert.Nil(t, got)
	assert.Equal(t, TierNone, tier)
}

// The second run of an intake row whose org name was trimmed by a human
// ("Lincoln High School" → "Lincoln High") must still match the record
// imported on the first run, via org-name similarity.
func TestMatchOrgEditDoesNotDuplicate(t *testing.T) {
	r := NewResolver()
	known := []*types.EventRequest{
		{
			ID:               3,
			Email:            "a@x.org",
			OrganizationName: "Lincoln High School",
			EventDate:        eventOn(2024, 3, 1),
			SubmittedOn:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		},
	}
	incoming := &types.EventRequest{
		Email:            "a@x.org",
		OrganizationName: "Lincoln High",
		EventDate:        eventOn(2024, 3, 1),
		// Submission timestamp re-entered an hour off, so tier 2 misses.
		SubmittedOn: time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
	}

	got, tier := r.Match(incoming, known)
	assert.Equal(t, TierEmailDateOrg, tier)
	assert.Equal(t, int64(3), got.ID)
}

func TestMatchDifferentDatesStayDistinct(t *testing.T) {
	r := NewResolver()
	known := []*types.EventRequest{
		{
			ID:               4,
			Email:            "a@x.org",
			OrganizationName: "Lincoln High School",
			ContactName:      "Pat Doe",
			Phone:            "5551234567",
			EventDate:        eventOn(2024, 3, 1),
			SubmittedOn:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		},
	}
	// Identical in every field except the event date.
	incoming := &types.EventRequest{
		Email:            "a@x.org",
		OrganizationName: "Lincoln High School",
		ContactName:      "Pat Doe",
		Phone:            "5551234567",
		EventDate:        eventOn(2024, 4, 1),
		SubmittedOn:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}

	got, tier := r.Match(incoming, known)
	assert.Nil(t, got)
	assert.Equal(t, TierNone, tier)
}

func TestMatchFuzzyPhone(t *testing.T) {
	r := NewResolver()
	known := []*types.EventRequest{
		{
			ID:               5,
			Email:            "old-address@x.org",
			OrganizationName: "Jefferson Middle School",
			Phone:            "5559876543",
			EventDate:        eventOn(2024, 5, 10),
		},
	}
	// Email changed; phone and a close org spelling carry the match.
	incoming := &types.EventRequest{
		Email:            "new-address@x.org",
		OrganizationName: "Jefferson Middle",
		Phone:            "5559876543",
		EventDate:        eventOn(2024, 5, 10),
	}

	got, tier := r.Match(incoming, known)
	assert.Equal(t, TierFuzzy, tier)
	assert.Equal(t, int64(5), got.ID)
}

func TestMatchFuzzyNameRequiresHighSimilarity(t *testing.T) {
	r := NewResolver()
	known := []*types.EventRequest{
		{
			ID:               6,
			OrganizationName: "Completely Different Org",
			ContactName:      "Pat Doe",
			EventDate:        eventOn(2024, 5, 10),
		},
	}
	incoming := &types.EventRequest{
		OrganizationName: "Lincoln High School",
		ContactName:      "Pat Doe",
		EventDate:        eventOn(2024, 5, 10),
	}

	got, tier := r.Match(incoming, known)
	assert.Nil(t, got)
	assert.Equal(t, TierNone, tier)
}
