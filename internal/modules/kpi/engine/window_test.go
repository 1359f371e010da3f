package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

// Wednesday 2026-03-18 15:45 UTC
var testNow = time.Date(2026, 3, 18, 15, 45, 0, 0, time.UTC)

func TestComputeRangeDayWindows(t *testing.T) {
	r := ComputeRange(WindowToday, testNow)
	require.True(t, r.Valid())
	assert.Equal(t, time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC), *r.Start)
	assert.Equal(t, 23, r.End.Hour())
	assert.Equal(t, 59, r.End.Minute())
	assert.Equal(t, 18, r.End.Day())

	y := ComputeRange(WindowYesterday, testNow)
	require.True(t, y.Valid())
	assert.Equal(t, 17, y.Start.Day())
	assert.Equal(t, 17, y.End.Day())
}

func TestComputeRangeWeekStartsMonday(t *testing.T) {
	r := ComputeRange(WindowThisWeek, testNow)
	require.True(t, r.Valid())
	assert.Equal(t, time.Monday, r.Start.Weekday())
	assert.Equal(t, 16, r.Start.Day())
	assert.Equal(t, time.Sunday, r.End.Weekday())
	assert.Equal(t, 22, r.End.Day())

	// a Sunday still belongs to the week that started the previous Monday
	sunday := time.Date(2026, 3, 22, 9, 0, 0, 0, time.UTC)
	rs := ComputeRange(WindowThisWeek, sunday)
	require.True(t, rs.Valid())
	assert.Equal(t, 16, rs.Start.Day())
}

func TestComputeRangeTrailingWindowsIncludeToday(t *testing.T) {
	r := ComputeRange(WindowLast7Days, testNow)
	require.True(t, r.Valid())
	assert.Equal(t, 12, r.Start.Day())
	assert.Equal(t, 18, r.End.Day())

	r30 := ComputeRange(WindowLast30Days, testNow)
	require.True(t, r30.Valid())
	assert.Equal(t, time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC), *r30.Start)
}

func TestComputeRangeMonthAndYear(t *testing.T) {
	m := ComputeRange(WindowThisMonth, testNow)
	require.True(t, m.Valid())
	assert.Equal(t, 1, m.Start.Day())
	assert.Equal(t, 31, m.End.Day())

	y := ComputeRange(WindowThisYear, testNow)
	require.True(t, y.Valid())
	assert.Equal(t, time.January, y.Start.Month())
	assert.Equal(t, time.December, y.End.Month())
	assert.Equal(t, 31, y.End.Day())
}

func TestComputeRangeNullWindows(t *testing.T) {
	assert.False(t, ComputeRange(WindowAllTime, testNow).Valid())
	assert.False(t, ComputeRange("no_such_window", testNow).Valid())
}

func TestShiftBackPrecedesWithoutOverlap(t *testing.T) {
	for _, key := range []string{WindowToday, WindowThisWeek, WindowLast7Days, WindowThisMonth, WindowLast30Days} {
		current := ComputeRange(key, testNow)
		previous := ShiftBack(current)
		require.True(t, previous.Valid(), key)
		assert.True(t, previous.End.Before(*current.Start), key)
		// the gap between the intervals is below one day
		assert.Less(t, current.Start.Sub(*previous.End), 24*time.Hour, key)
	}
}

func TestShiftBackMonth(t *testing.T) {
	current := ComputeRange(WindowThisMonth, testNow)
	previous := ShiftBack(current)
	require.True(t, previous.Valid())
	// duration preserving: March has 31 days, so the shifted interval
	// reaches back into January
	assert.Equal(t, time.February, previous.End.Month())
	assert.Equal(t, 28, previous.End.Day())
	assert.Equal(t, time.January, previous.Start.Month())
	assert.Equal(t, 29, previous.Start.Day())
}

func TestShiftBackNullRange(t *testing.T) {
	assert.False(t, ShiftBack(Range{}).Valid())
}

func TestResolveTimeSettingsPrecedence(t *testing.T) {
	metric := &models.Metric{TimeWindow: WindowThisMonth}
	widget := &models.Widget{TimeWindowOverride: WindowLast7Days}
	ctx := &models.ResolveContext{TimeWindow: WindowToday, Now: &testNow}

	_, key := ResolveTimeSettings(metric, widget, ctx)
	assert.Equal(t, WindowLast7Days, key)

	_, key = ResolveTimeSettings(metric, &models.Widget{}, ctx)
	assert.Equal(t, WindowToday, key)

	_, key = ResolveTimeSettings(metric, nil, &models.ResolveContext{Now: &testNow})
	assert.Equal(t, WindowThisMonth, key)

	_, key = ResolveTimeSettings(&models.Metric{}, nil, nil)
	assert.Equal(t, WindowThisMonth, key)
}

func TestResolveTimeSettingsCustomBounds(t *testing.T) {
	metric := &models.Metric{TimeWindow: WindowCustom, CustomStart: "2026-01-10", CustomEnd: "2026-01-20"}

	r, key := ResolveTimeSettings(metric, nil, nil)
	assert.Equal(t, WindowCustom, key)
	require.True(t, r.Valid())
	assert.Equal(t, 10, r.Start.Day())
	assert.Equal(t, 20, r.End.Day())
	assert.Equal(t, 23, r.End.Hour())

	// widget overrides win over the metric's own bounds
	widget := &models.Widget{TimeWindowOverride: WindowCustom, CustomStartOverride: "2026-02-01", CustomEndOverride: "2026-02-05"}
	r, _ = ResolveTimeSettings(metric, widget, nil)
	require.True(t, r.Valid())
	assert.Equal(t, time.February, r.Start.Month())

	// incomplete bounds degrade to a null range
	broken := &models.Metric{TimeWindow: WindowCustom, CustomStart: "2026-01-10"}
	r, _ = ResolveTimeSettings(broken, nil, nil)
	assert.False(t, r.Valid())
}

func TestRangeContains(t *testing.T) {
	r := ComputeRange(WindowThisMonth, testNow)
	assert.True(t, r.Contains(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, Range{}.Contains(testNow))
}
