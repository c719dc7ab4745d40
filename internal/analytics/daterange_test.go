package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRangeExplicit(t *testing.T) {
	r, err := ResolveRange("2025-06-01", "2025-06-30", 30)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", r.Start.Format(DateLayout))
	assert.Equal(t, "2025-06-30", r.End.Format(DateLayout))
	assert.Equal(t, 30, r.Days())
}

func TestResolveRangeDefaultWindow(t *testing.T) {
	r, err := ResolveRange("", "", 30)
	require.NoError(t, err)
	assert.Equal(t, 31, r.Days())
	assert.True(t, r.End.After(r.Start))
}

func TestResolveRangeSingleBoundRejected(t *testing.T) {
	_, err := ResolveRange("2025-06-01", "", 30)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ResolveRange("", "2025-06-30", 30)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestResolveRangeBadDates(t *testing.T) {
	_, err := ResolveRange("06/01/2025", "2025-06-30", 30)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ResolveRange("2025-06-01", "not-a-date", 30)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestResolveRangeInverted(t *testing.T) {
	_, err := ResolveRange("2025-06-30", "2025-06-01", 30)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestPriorYearCalendarAlignment(t *testing.T) {
	r, err := ResolveRange("2025-06-01", "2025-06-30", 30)
	require.NoError(t, err)

	prior := r.PriorYear()
	assert.Equal(t, "2024-06-01", prior.Start.Format(DateLayout))
	assert.Equal(t, "2024-06-30", prior.End.Format(DateLayout))
	assert.Equal(t, r.Days(), prior.Days())
}

func TestPriorYearAcrossYearBoundary(t *testing.T) {
	r, err := ResolveRange("2024-12-15", "2025-01-15", 30)
	require.NoError(t, err)

	prior := r.PriorYear()
	assert.Equal(t, "2023-12-15", prior.Start.Format(DateLayout))
	assert.Equal(t, "2024-01-15", prior.End.Format(DateLayout))
}

func TestRangeContains(t *testing.T) {
	r, err := ResolveRange("2025-06-01", "2025-06-30", 30)
	require.NoError(t, err)

	inside := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	before := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	after := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, r.Contains(inside))
	assert.True(t, r.Contains(r.Start))
	assert.True(t, r.Contains(r.End))
	assert.False(t, r.Contains(before))
	assert.False(t, r.Contains(after))
}

func TestRangeEachDay(t *testing.T) {
	r, err := ResolveRange("2025-06-28", "2025-07-02", 30)
	require.NoError(t, err)

	var days []string
	r.EachDay(func(d time.Time) {
		days = append(days, d.Format(DateLayout))
	})
	assert.Equal(t, []string{"2025-06-28", "2025-06-29", "2025-06-30", "2025-07-01", "2025-07-02"}, days)
}

func TestRangeSingleDay(t *testing.T) {
	r, err := ResolveRange("2025-06-01", "2025-06-01", 30)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Days())
}
