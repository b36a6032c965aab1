package commands

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashboardai/dashboardai/components/dashboard"
	"github.com/dashboardai/dashboardai/pkg/backend"
)

type stubTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (s *stubTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

type stubCharts struct {
	chart backend.GeneratedChart
	err   error
	got   backend.ChartRequest
}

func (s *stubCharts) GenerateChart(_ context.Context, req backend.ChartRequest) (backend.GeneratedChart, error) {
	s.got = req
	return s.chart, s.err
}

var viewer = dashboard.ViewerContext{UserID: "ana"}

func TestWidgetCommandsDriveService(t *testing.T) {
	ctx := context.Background()
	svc := dashboard.NewService(dashboard.Options{})
	telemetry := &stubTelemetry{}

	add := NewAddWidgetCommand(svc, telemetry)
	require.NoError(t, add.Execute(ctx, AddWidgetInput{
		Viewer: viewer,
		Spec:   dashboard.WidgetSpec{ID: "m1", Kind: dashboard.KindMetric, Title: "Cliques"},
	}))
	require.NoError(t, add.Execute(ctx, AddWidgetInput{
		Viewer: viewer,
		Spec:   dashboard.WidgetSpec{ID: "m2", Kind: dashboard.KindMetric, Title: "Alcance"},
	}))

	move := NewMoveWidgetCommand(svc, telemetry)
	require.NoError(t, move.Execute(ctx, MoveWidgetInput{Viewer: viewer, WidgetID: "m1", Placement: dashboard.Placement{X: 6, Y: 0, W: 6, H: 4}}))
	assert.Error(t, move.Execute(ctx, MoveWidgetInput{Viewer: viewer}))

	layouts := NewUpdateLayoutsCommand(svc, telemetry)
	require.NoError(t, layouts.Execute(ctx, UpdateLayoutsInput{
		Viewer:  viewer,
		Layouts: dashboard.LayoutSnapshot{dashboard.BreakpointLG: {{I: "m2", X: 0, Y: 4, W: 12, H: 2}}},
	}))

	remove := NewRemoveWidgetCommand(svc, telemetry)
	require.NoError(t, remove.Execute(ctx, RemoveWidgetInput{Viewer: viewer, WidgetID: "m1"}))

	layout, err := svc.Layout(ctx, viewer)
	require.NoError(t, err)
	require.Len(t, layout.Widgets, 1)
	assert.Equal(t, dashboard.Placement{X: 0, Y: 4, W: 12, H: 2}, layout.Widgets[0].Placement)
	assert.Equal(t, []string{
		"dashboard.command.add",
		"dashboard.command.add",
		"dashboard.command.move",
		"dashboard.command.layouts",
		"dashboard.command.remove",
	}, telemetry.events)
}

func TestCommandsRequireService(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, NewAddWidgetCommand(nil, nil).Execute(ctx, AddWidgetInput{}), errMissingService)
	assert.ErrorIs(t, NewRemoveWidgetCommand(nil, nil).Execute(ctx, RemoveWidgetInput{}), errMissingService)
	assert.ErrorIs(t, NewRestoreDashboardCommand(nil, nil).Execute(ctx, RestoreDashboardInput{}), errMissingService)
}

func TestRestoreDashboardCommand(t *testing.T) {
	ctx := context.Background()
	svc := dashboard.NewService(dashboard.Options{})
	cmd := NewRestoreDashboardCommand(svc, nil)
	require.NoError(t, cmd.Execute(ctx, RestoreDashboardInput{
		Viewer: viewer,
		Document: dashboard.Document{Widgets: []dashboard.Widget{
			{ID: "m1", Kind: dashboard.KindMetric, Title: "Cliques", Placement: dashboard.Placement{W: 4, H: 2}},
		}},
	}))
	doc, err := svc.Document(ctx, viewer)
	require.NoError(t, err)
	assert.Len(t, doc.Widgets, 1)

	require.NoError(t, cmd.Execute(ctx, RestoreDashboardInput{Viewer: viewer}))
	doc, err = svc.Document(ctx, viewer)
	require.NoError(t, err)
	assert.Empty(t, doc.Widgets)
}

func TestImportGeneratedChartAddsWidget(t *testing.T) {
	ctx := context.Background()
	svc := dashboard.NewService(dashboard.Options{})
	charts := &stubCharts{chart: backend.DefaultDemoData().Chart}
	telemetry := &stubTelemetry{}
	cmd := NewImportGeneratedChartCommand(charts, nil, svc, telemetry)

	err := cmd.Execute(ctx, ImportGeneratedChartInput{
		Viewer:         viewer,
		WidgetID:       "chart_ai",
		Prompt:         "  vendas por mês ",
		SpreadsheetURL: "https://docs.google.com/spreadsheets/d/abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "vendas por mês", charts.got.Prompt)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc", charts.got.SpreadsheetURL)

	widget, err := svc.Widget(ctx, viewer, "chart_ai")
	require.NoError(t, err)
	assert.Equal(t, dashboard.KindChart, widget.Kind)
	assert.Equal(t, dashboard.ChartBar, widget.ChartVariant)
	assert.Equal(t, "Vendas por mês", widget.Title)
	assert.Len(t, widget.Dataset, 3)
	assert.Equal(t, "name", widget.RenderConfig.XKey)
	assert.Equal(t, []string{"dashboard.command.chart_import"}, telemetry.events)
}

func TestImportGeneratedChartRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc := dashboard.NewService(dashboard.Options{})

	cmd := NewImportGeneratedChartCommand(&stubCharts{}, nil, svc, nil)
	assert.ErrorIs(t, cmd.Execute(ctx, ImportGeneratedChartInput{Viewer: viewer, Prompt: " "}), dashboard.ErrInvalidWidget)

	bad := NewImportGeneratedChartCommand(&stubCharts{chart: backend.GeneratedChart{"type": "radar"}}, nil, svc, nil)
	assert.ErrorIs(t, bad.Execute(ctx, ImportGeneratedChartInput{Viewer: viewer, Prompt: "x"}), dashboard.ErrInvalidWidget)

	boom := errors.New("ai offline")
	failing := NewImportGeneratedChartCommand(&stubCharts{err: boom}, nil, svc, nil)
	assert.ErrorIs(t, failing.Execute(ctx, ImportGeneratedChartInput{Viewer: viewer, Prompt: "x"}), boom)

	layout, err := svc.Layout(ctx, viewer)
	require.NoError(t, err)
	assert.Empty(t, layout.Widgets)
}

func TestSpecFromGeneratedChartDefaults(t *testing.T) {
	spec, err := SpecFromGeneratedChart(backend.GeneratedChart{
		"type":   "pie",
		"config": map[string]any{"dataKey": "value", "colors": []any{"#fff", "", 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Gráfico gerado", spec.Title)
	assert.Equal(t, dashboard.ChartPie, spec.ChartVariant)
	assert.Equal(t, []string{"#fff"}, spec.RenderConfig.Colors)

	_, err = SpecFromGeneratedChart(backend.GeneratedChart{})
	assert.Error(t, err)
}
