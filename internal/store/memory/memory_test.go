package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldday/eventsync/internal/store"
	"github.com/fieldday/eventsync/internal/types"
)

func TestFindEventRequestByExternalID(t *testing.T) {
	ctx := context.Background()
	st := New()

	e := &types.EventRequest{
		ExternalID:       "evt-abc123def456",
		OrganizationName: "Lincoln High School",
		Email:            "pat@lincoln.edu",
		Status:           types.StatusNew,
	}
	inserted, err := st.InsertEventRequestIgnoringConflict(ctx, e)
	require.NoError(t, err)
	require.True(t, inserted)

	got, err := st.FindEventRequestByExternalID(ctx, "evt-abc123def456")
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "Lincoln High School", got.OrganizationName)

	// Returned record is a copy; mutating it must not reach the store.
	got.OrganizationName = "scribbled over"
	again, err := st.FindEventRequestByExternalID(ctx, "evt-abc123def456")
	require.NoError(t, err)
	assert.Equal(t, "Lincoln High School", again.OrganizationName)

	_, err = st.FindEventRequestByExternalID(ctx, "evt-nosuchrecord")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateProjectUnknownField(t *testing.T) {
	ctx := context.Background()
	st := New()

	p := &types.Project{Name: "Fall Festival", TargetDate: time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, st.CreateProject(ctx, p))

	err := st.UpdateProject(ctx, p.ID, map[string]interface{}{"nmae": "typo"})
	assert.Error(t, err)

	err = st.UpdateProject(ctx, p.ID+99, map[string]interface{}{"name": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
