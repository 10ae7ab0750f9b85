package sheetcodec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDateSerial(t *testing.T) {
	// Serial 45000 is 2023-03-15 UTC.
	got, ok := DecodeDate("45000")
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestDecodeDateSerialRoundTrip(t *testing.T) {
	got, ok := DecodeDate("45000")
	require.True(t, ok)
	assert.Equal(t, "2023-03-15", EncodeDate(got))

	// The same calendar date as an ISO string decodes identically,
	// regardless of which branch handled it.
	viaString, ok := DecodeDate("2023-03-15")
	require.True(t, ok)
	assert.True(t, got.Equal(viaString))
}

func TestDecodeDateSerialFraction(t *testing.T) {
	// Fractional serials carry time of day: .5 is noon.
	got, ok := DecodeDate("45000.5")
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC), got)
}

func TestDecodeDateLayouts(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2024-03-01", "3/1/2024", "03/01/2024", "Mar 1, 2024"} {
		got, ok := DecodeDate(raw)
		require.True(t, ok, "DecodeDate(%q)", raw)
		assert.True(t, want.Equal(got), "DecodeDate(%q) = %v", raw, got)
	}
}

func TestDecodeDateRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not a date", "5551234567", "-12", "0"} {
		_, ok := DecodeDate(raw)
		assert.False(t, ok, "DecodeDate(%q) should fail", raw)
	}
}

func TestEncodeDateZero(t *testing.T) {
	assert.Equal(t, "", EncodeDate(time.Time{}))
	assert.Equal(t, "", EncodeDateTime(time.Time{}))
}
