package sheetcodec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldday/eventsync/internal/types"
)

func eventHeader() []string {
	return []string{
		"Organization", "Contact Name", "Email Address", "Phone",
		"Event Date", "Submitted On", "Location", "Expected Attendance",
		"Status", "Notes",
	}
}

func TestDecodeEventRow(t *testing.T) {
	m := NewMapper(eventHeader(), EventFields(), nil)
	c := NewCodec(nil)

	row := []string{
		"Lincoln High School", "Pat Doe", "A@X.org", "(555) 123-4567",
		"2024-03-01", "2024-01-01 10:00:00", "Gym", "120", "New", "needs projector",
	}
	e, err := c.DecodeEventRow(row, m, 2)
	require.NoError(t, err)

	assert.Equal(t, "Lincoln High School", e.OrganizationName)
	assert.Equal(t, "a@x.org", e.Email)
	assert.Equal(t, "5551234567", e.Phone)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), e.EventDate)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), e.SubmittedOn)
	assert.Equal(t, 120, e.ExpectedAttendance)
	assert.Equal(t, types.StatusNew, e.Status)
	assert.Equal(t, 2, e.SheetRowIndex)
}

func TestDecodeEventRowShortRow(t *testing.T) {
	m := NewMapper(eventHeader(), EventFields(), nil)
	c := NewCodec(nil)

	// Trailing empty cells are omitted by the sheet API.
	e, err := c.DecodeEventRow([]string{"Lincoln High", "Pat", "a@x.org"}, m, 3)
	require.NoError(t, err)
	assert.Equal(t, "a@x.org", e.Email)
	assert.True(t, e.EventDate.IsZero())
	assert.Equal(t, types.StatusNew, e.Status)
}

func TestDecodeEventRowUnusable(t *testing.T) {
	m := NewMapper(eventHeader(), EventFields(), nil)
	c := NewCodec(nil)

	_, err := c.DecodeEventRow([]string{"", "", "", "", "2024-03-01"}, m, 4)
	var shapeErr *DataShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestDecodeEventRowCrossFieldDefense(t *testing.T) {
	m := NewMapper(eventHeader(), EventFields(), nil)
	c := NewCodec(nil)

	// Phone in the date column, date in the phone column: both dropped,
	// neither corrupts the record.
	row := []string{
		"Lincoln High", "Pat", "a@x.org", "2024-03-01",
		"(555) 123-4567", "2024-01-01 10:00:00",
	}
	e, err := c.DecodeEventRow(row, m, 5)
	require.NoError(t, err)
	assert.Empty(t, e.Phone)
	assert.True(t, e.EventDate.IsZero())
}

func TestProjectRowRoundTrip(t *testing.T) {
	c := NewCodec(nil)
	p := &types.Project{
		Name:       "STEM Fair",
		Owner:      "Kim",
		Email:      "kim@x.org",
		Status:     "active",
		TargetDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		SubTasks: []types.SubTask{
			{Title: "Book venue", Owner: "Kim", Status: "done"},
			{Title: "Order kits"},
		},
		UpdatedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}

	row := c.EncodeProjectRow(p)
	require.Len(t, row, len(ProjectFields()))

	header := []string{"Project Name", "Owner", "Email", "Status", "Target Date", "Sub-Tasks", "Last Modified"}
	m := NewMapper(header, ProjectFields(), nil)

	got, err := c.DecodeProjectRow(row, m, 9)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Owner, got.Owner)
	assert.True(t, p.TargetDate.Equal(got.TargetDate))
	require.Len(t, got.SubTasks, 2)
	assert.Equal(t, "Book venue", got.SubTasks[0].Title)
	assert.Equal(t, "done", got.SubTasks[0].Status)
	assert.Equal(t, "Order kits", got.SubTasks[1].Title)
	assert.True(t, p.UpdatedAt.Equal(got.UpdatedAt))
}
