package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashboardai/dashboardai/components/dashboard"
)

func TestLayoutAndWidgetQueries(t *testing.T) {
	ctx := context.Background()
	viewer := dashboard.ViewerContext{UserID: "ana"}
	svc := dashboard.NewService(dashboard.Options{})
	_, err := svc.AddWidget(ctx, viewer, dashboard.WidgetSpec{ID: "m1", Kind: dashboard.KindMetric, Title: "Cliques"})
	require.NoError(t, err)

	layout, err := NewLayoutQuery(svc).Query(ctx, viewer)
	require.NoError(t, err)
	assert.Len(t, layout.Widgets, 1)
	assert.Len(t, layout.Layouts, len(dashboard.Breakpoints))

	widget, err := NewWidgetQuery(svc).Query(ctx, WidgetInput{Viewer: viewer, WidgetID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "Cliques", widget.Title)

	_, err = NewWidgetQuery(svc).Query(ctx, WidgetInput{Viewer: viewer, WidgetID: "nope"})
	assert.ErrorIs(t, err, dashboard.ErrWidgetNotFound)
}

func TestChartHTMLQuery(t *testing.T) {
	ctx := context.Background()
	viewer := dashboard.ViewerContext{UserID: "ana"}
	svc := dashboard.NewService(dashboard.Options{})
	_, err := svc.AddWidget(ctx, viewer, dashboard.WidgetSpec{
		ID:           "c1",
		Kind:         dashboard.KindChart,
		Title:        "Vendas",
		ChartVariant: dashboard.ChartLine,
		Dataset:      []map[string]any{{"name": "Jan", "value": 3}},
	})
	require.NoError(t, err)
	_, err = svc.AddWidget(ctx, viewer, dashboard.WidgetSpec{ID: "m1", Kind: dashboard.KindMetric, Title: "Cliques"})
	require.NoError(t, err)

	query := NewChartHTMLQuery(svc, dashboard.NewChartRenderer())
	html, err := query.Query(ctx, ChartHTMLInput{Viewer: viewer, WidgetID: "c1"})
	require.NoError(t, err)
	assert.Contains(t, html, "echarts")

	_, err = query.Query(ctx, ChartHTMLInput{Viewer: viewer, WidgetID: "m1"})
	assert.ErrorIs(t, err, dashboard.ErrNotChart)
}
