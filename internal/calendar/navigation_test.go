package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftMonthDoesNotOverflowShortMonths(t *testing.T) {
	t.Parallel()

	jan31 := time.Date(2024, time.January, 31, 18, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), ShiftMonth(jan31, 1))
	assert.Equal(t, time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), ShiftMonth(jan31, -1))
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), ShiftMonth(jan31, 12))
}

func TestMonthRange(t *testing.T) {
	t.Parallel()

	from, to := MonthRange(time.Date(2024, time.February, 17, 9, 0, 0, 0, time.UTC))

	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), to)
}

func TestParseMonth(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("CET", 3600)
	got, err := ParseMonth("2024-02", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, loc), got)
	assert.Equal(t, "2024-02", FormatMonth(got))

	_, err = ParseMonth("2024-13", loc)
	require.Error(t, err)

	_, err = ParseMonth("february", nil)
	require.Error(t, err)
}
