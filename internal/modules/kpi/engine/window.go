package engine

import (
	"time"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

// Time window keys. Unknown keys and all_time resolve to a null range.
const (
	WindowToday      = "today"
	WindowYesterday  = "yesterday"
	WindowThisWeek   = "this_week"
	WindowLast7Days  = "last_7_days"
	WindowThisMonth  = "this_month"
	WindowLast30Days = "last_30_days"
	WindowThisYear   = "this_year"
	WindowCustom     = "custom"
	WindowAllTime    = "all_time"

	defaultWindow = WindowThisMonth
)

// Range is a closed [start, end] interval at day boundaries. A nil start or
// end means no date filtering applies.
type Range struct {
	Start *time.Time
	End   *time.Time
}

// Valid reports whether the range carries both bounds.
func (r Range) Valid() bool {
	return r.Start != nil && r.End != nil
}

// Contains reports whether t falls inside the closed interval. A null range
// contains nothing.
func (r Range) Contains(t time.Time) bool {
	return r.Valid() && !t.Before(*r.Start) && !t.After(*r.End)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// startOfWeek returns the Monday of t's ISO week at day start.
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	offset := int(d.Weekday()) - 1
	if d.Weekday() == time.Sunday {
		offset = 6
	}
	return d.AddDate(0, 0, -offset)
}

func endOfWeek(t time.Time) time.Time {
	return endOfDay(startOfWeek(t).AddDate(0, 0, 6))
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	return endOfDay(startOfMonth(t).AddDate(0, 1, -1))
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
}

func endOfYear(t time.Time) time.Time {
	return endOfDay(time.Date(t.Year(), 12, 31, 0, 0, 0, 0, t.Location()))
}

func rangeOf(start, end time.Time) Range {
	return Range{Start: &start, End: &end}
}

// ComputeRange converts a symbolic window key plus a reference instant into
// a concrete interval. Trailing windows count the reference day as day one.
func ComputeRange(windowKey string, now time.Time) Range {
	switch windowKey {
	case WindowToday:
		return rangeOf(startOfDay(now), endOfDay(now))
	case WindowYesterday:
		y := startOfDay(now).AddDate(0, 0, -1)
		return rangeOf(y, endOfDay(y))
	case WindowThisWeek:
		return rangeOf(startOfWeek(now), endOfWeek(now))
	case WindowLast7Days:
		return rangeOf(startOfDay(now).AddDate(0, 0, -6), endOfDay(now))
	case WindowThisMonth:
		return rangeOf(startOfMonth(now), endOfMonth(now))
	case WindowLast30Days:
		return rangeOf(startOfDay(now).AddDate(0, 0, -29), endOfDay(now))
	case WindowThisYear:
		return rangeOf(startOfYear(now), endOfYear(now))
	default:
		return Range{}
	}
}

// ShiftBack returns the interval immediately preceding r with the same
// duration, its end one millisecond before r's start. Null ranges shift to
// null ranges.
func ShiftBack(r Range) Range {
	if !r.Valid() {
		return Range{}
	}
	duration := r.End.Sub(*r.Start)
	end := r.Start.Add(-time.Millisecond)
	start := end.Add(-duration)
	return rangeOf(startOfDay(start), endOfDay(end))
}

// ResolveTimeSettings picks the effective window for a metric+widget+context
// triple. Precedence: widget override, then context, then the metric's own
// window, then this_month. Custom start/end follow the same chain
// independently of which window key wins.
func ResolveTimeSettings(metric *models.Metric, widget *models.Widget, ctx *models.ResolveContext) (Range, string) {
	windowKey := ""
	if widget != nil && widget.TimeWindowOverride != "" {
		windowKey = widget.TimeWindowOverride
	}
	if windowKey == "" && ctx != nil && ctx.TimeWindow != "" {
		windowKey = ctx.TimeWindow
	}
	if windowKey == "" && metric != nil && metric.TimeWindow != "" {
		windowKey = metric.TimeWindow
	}
	if windowKey == "" {
		windowKey = defaultWindow
	}

	now := time.Now().UTC()
	if ctx != nil && ctx.Now != nil {
		now = *ctx.Now
	}
	resolved := ComputeRange(windowKey, now)

	if windowKey == WindowCustom {
		customStart, customEnd := resolveCustomBounds(metric, widget, ctx)
		start, startOK := toTime(customStart)
		end, endOK := toTime(customEnd)
		if startOK && endOK {
			resolved = rangeOf(startOfDay(start), endOfDay(end))
		} else {
			resolved = Range{}
		}
	}
	return resolved, windowKey
}

func resolveCustomBounds(metric *models.Metric, widget *models.Widget, ctx *models.ResolveContext) (string, string) {
	start, end := "", ""
	if widget != nil {
		start, end = widget.CustomStartOverride, widget.CustomEndOverride
	}
	if start == "" && ctx != nil && ctx.CustomRange != nil {
		start = ctx.CustomRange.Start
	}
	if end == "" && ctx != nil && ctx.CustomRange != nil {
		end = ctx.CustomRange.End
	}
	if metric != nil {
		if start == "" {
			start = metric.CustomStart
		}
		if end == "" {
			end = metric.CustomEnd
		}
	}
	return start, end
}
