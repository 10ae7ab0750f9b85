package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldday/eventsync/internal/engine"
	"github.com/fieldday/eventsync/internal/notify"
	"github.com/fieldday/eventsync/internal/store/memory"
	"github.com/fieldday/eventsync/internal/types"
)

func TestCompletionBoundary(t *testing.T) {
	eventDate := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	boundary := engine.CompletionBoundary(eventDate, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), boundary)

	// Time-of-day on the event date is irrelevant.
	assert.Equal(t, boundary,
		engine.CompletionBoundary(time.Date(2024, 1, 10, 18, 30, 0, 0, time.UTC), time.UTC))
}

func TestLifecycleCompletesScheduledEvents(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, st *memory.Store, eventDate time.Time) int64 {
		t.Helper()
		e := &types.EventRequest{
			ExternalID:       "evt-test00000001",
			OrganizationName: "Lincoln High School",
			Email:            "pat@lincoln.edu",
			EventDate:        eventDate,
			Status:           types.StatusNew,
		}
		_, err := st.InsertEventRequestIgnoringConflict(ctx, e)
		require.NoError(t, err)
		require.NoError(t, st.UpdateEventRequestStatus(ctx, e.ID, types.StatusScheduled))
		return e.ID
	}

	cases := []struct {
		name     string
		now      time.Time
		complete bool
	}{
		{"day after event, midnight", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), false},
		{"day after event, evening", time.Date(2024, 1, 11, 23, 59, 59, 0, time.UTC), false},
		{"two days after, just past midnight", time.Date(2024, 1, 12, 0, 0, 1, 0, time.UTC), true},
		{"well past", time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), true},
	}

	eventDate := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := memory.New()
			id := seed(t, st, eventDate)

			rec := &recordingNotifier{}
			lc := engine.NewLifecycle(st, rec, quietLogger())
			lc.Location = time.UTC
			lc.Clock = func() time.Time { return tc.now }

			completed, err := lc.Run(ctx)
			require.NoError(t, err)

			got, ok := st.GetEventRequest(id)
			require.True(t, ok)
			if tc.complete {
				assert.Equal(t, 1, completed)
				assert.Equal(t, types.StatusCompleted, got.Status)
				require.Len(t, rec.Events(), 1)
				assert.Equal(t, notify.KindLifecycleTransition, rec.Events()[0].Kind)
			} else {
				assert.Equal(t, 0, completed)
				assert.Equal(t, types.StatusScheduled, got.Status)
				assert.Empty(t, rec.Events())
			}
		})
	}
}

func TestLifecycleIgnoresNonScheduledAndUndated(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	undated := &types.EventRequest{ExternalID: "evt-undated00001", Email: "a@b.org", Status: types.StatusNew}
	_, err := st.InsertEventRequestIgnoringConflict(ctx, undated)
	require.NoError(t, err)
	require.NoError(t, st.UpdateEventRequestStatus(ctx, undated.ID, types.StatusScheduled))

	declined := &types.EventRequest{
		ExternalID: "evt-declined0001",
		Email:      "c@d.org",
		EventDate:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     types.StatusDeclined,
	}
	_, err = st.InsertEventRequestIgnoringConflict(ctx, declined)
	require.NoError(t, err)

	lc := engine.NewLifecycle(st, nil, quietLogger())
	lc.Location = time.UTC
	lc.Clock = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	completed, err := lc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, completed)

	got, _ := st.GetEventRequest(declined.ID)
	assert.Equal(t, types.StatusDeclined, got.Status, "declined requests never auto-complete")
}
