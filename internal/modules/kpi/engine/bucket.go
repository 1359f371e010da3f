package engine

import (
	"fmt"
	"sort"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

// Bucketing granularities.
const (
	GranularityExact   = "exact"
	GranularityHour    = "hour"
	GranularityDay     = "day"
	GranularityWeek    = "week"
	GranularityMonth   = "month"
	GranularityQuarter = "quarter"
	GranularityYear    = "year"
)

type bucketGroup struct {
	key     string
	label   string
	records []models.Record
	value   float64
}

// Bucket partitions records by the dimension field at the given granularity,
// aggregates each partition and returns ordered labeled points.
//
// With a positive limit the buckets rank by value descending and truncate
// (top-N mode). Without a limit, calendar granularities order
// chronologically by bucket key and exact grouping orders by value
// descending. Records with a null dimension value are left out entirely.
func Bucket(records []models.Record, dimensionField *models.SourceField, granularity string, valueField *models.SourceField, aggregation string, limit int) []models.Point {
	if dimensionField == nil {
		return []models.Point{}
	}

	groups := make([]*bucketGroup, 0)
	index := map[string]*bucketGroup{}
	for _, record := range records {
		raw := GetValue(record, dimensionField.Name)
		if raw == nil {
			continue
		}
		key, label, ok := bucketKey(raw, granularity)
		if !ok {
			continue
		}
		group, exists := index[key]
		if !exists {
			group = &bucketGroup{key: key, label: label}
			index[key] = group
			groups = append(groups, group)
		}
		group.records = append(group.records, record)
	}

	for _, group := range groups {
		group.value = Aggregate(group.records, aggregation, valueField)
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].value > groups[j].value })
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	} else if limit <= 0 && granularity != "" && granularity != GranularityExact {
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].key < groups[j].key })
	}

	points := make([]models.Point, len(groups))
	for i, group := range groups {
		points[i] = models.Point{Label: group.label, Value: group.value}
	}
	return points
}

// bucketKey derives the calendar-aligned key and display label for one raw
// dimension value. Exact grouping uses the raw value for both.
func bucketKey(raw any, granularity string) (key, label string, ok bool) {
	if granularity == "" || granularity == GranularityExact {
		s := stringify(raw)
		return s, s, true
	}
	date, parsed := toTime(raw)
	if !parsed {
		return "", "", false
	}
	switch granularity {
	case GranularityHour:
		key = date.Format("2006-01-02 15:00")
		label = fmt.Sprintf("%02d:00", date.Hour())
	case GranularityDay:
		key = date.Format("2006-01-02")
		label = key
	case GranularityWeek:
		weekStart := startOfWeek(date)
		key = weekStart.Format("2006-01-02")
		weekOfMonth := (weekStart.Day() + 12) / 7 // ceil((day+6)/7)
		label = fmt.Sprintf("Sem %d %d", weekOfMonth, weekStart.Year())
	case GranularityMonth:
		key = date.Format("2006-01")
		label = key
	case GranularityQuarter:
		key = fmt.Sprintf("%d-Q%d", date.Year(), (int(date.Month())-1)/3+1)
		label = key
	case GranularityYear:
		key = fmt.Sprintf("%d", date.Year())
		label = key
	default:
		s := stringify(raw)
		return s, s, true
	}
	return key, label, true
}
