package services

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/store"
)

func newResolveService(t *testing.T) (*ResolveService, *store.Store) {
	t.Helper()
	st, err := store.New(store.Config{}, zerolog.Nop())
	require.NoError(t, err)
	catalog := NewCatalogService(st, zerolog.Nop())
	return NewResolveService(st, catalog, zerolog.Nop()), st
}

func TestResolveDashboardResolvesEveryWidget(t *testing.T) {
	svc, st := newResolveService(t)

	out, err := svc.ResolveDashboard(DashboardQuery{ID: i64(1)}, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Dashboard)
	assert.Equal(t, int64(1), out.Dashboard.ID)

	widgets := st.ListWidgets(models.ListParams{DashboardID: i64(1)})
	require.Len(t, out.Widgets, len(widgets))
	for _, w := range out.Widgets {
		assert.Empty(t, w.Error)
		require.NotNil(t, w.Summary, "widget %d has no summary", w.Widget.ID)
		assert.NotEmpty(t, w.Summary.FormattedValue)
	}
}

func TestResolveWidgetHonorsContextWindow(t *testing.T) {
	svc, _ := newResolveService(t)
	// the 25th of last month: both windows fall inside the seeded history
	// and last_7_days is a strict subset of this_month
	real := time.Now()
	now := time.Date(real.Year(), real.Month()-1, 25, 12, 0, 0, 0, time.UTC)

	base, err := svc.ResolveWidget(1, &models.ResolveContext{Now: &now})
	require.NoError(t, err)
	require.NotNil(t, base.Result)
	assert.Equal(t, "this_month", base.Result.Range.WindowKey)

	scoped, err := svc.ResolveWidget(1, &models.ResolveContext{Now: &now, TimeWindow: "last_7_days"})
	require.NoError(t, err)
	assert.Equal(t, "last_7_days", scoped.Result.Range.WindowKey)
	assert.LessOrEqual(t, scoped.Result.Total, base.Result.Total)
}

func TestResolveWidgetUnknownID(t *testing.T) {
	svc, _ := newResolveService(t)

	_, err := svc.ResolveWidget(9999, nil)
	assert.True(t, store.IsNotFound(err))
}

func TestResolveMetricOverSeedData(t *testing.T) {
	svc, _ := newResolveService(t)

	result, err := svc.ResolveMetric(1, nil)
	require.NoError(t, err)
	assert.Positive(t, result.Total)
	assert.NotEmpty(t, result.Records)
	// seeded metric carries a comparison flag
	assert.NotNil(t, result.PreviousTotal)

	_, err = svc.ResolveMetric(777, nil)
	assert.True(t, store.IsNotFound(err))
}

func TestResolveMetricLocalOverrides(t *testing.T) {
	svc, _ := newResolveService(t)

	// suppress the stored cancelada filter: total can only grow
	base, err := svc.ResolveMetric(1, nil)
	require.NoError(t, err)
	unfiltered, err := svc.ResolveMetric(1, &models.ResolveOptions{LocalFilters: []models.FilterRule{}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, unfiltered.Total, base.Total)
	assert.GreaterOrEqual(t, len(unfiltered.Records), len(base.Records))
}
