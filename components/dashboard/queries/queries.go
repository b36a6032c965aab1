// Package queries exposes read-only dashboard lookups as go-command Queriers.
package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/dashboardai/dashboardai/components/dashboard"
)

type layoutService interface {
	Layout(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Layout, error)
}

// LayoutQuery returns the viewer's widgets and resolved breakpoint layouts.
type LayoutQuery struct {
	service layoutService
}

// NewLayoutQuery builds the query.
func NewLayoutQuery(service layoutService) *LayoutQuery {
	return &LayoutQuery{service: service}
}

var _ gocommand.Querier[dashboard.ViewerContext, dashboard.Layout] = (*LayoutQuery)(nil)

func (q *LayoutQuery) Query(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Layout, error) {
	return q.service.Layout(ctx, viewer)
}

// WidgetInput identifies one widget of a viewer.
type WidgetInput struct {
	Viewer   dashboard.ViewerContext
	WidgetID string
}

type widgetService interface {
	Widget(ctx context.Context, viewer dashboard.ViewerContext, widgetID string) (dashboard.Widget, error)
}

// WidgetQuery fetches a single widget.
type WidgetQuery struct {
	service widgetService
}

// NewWidgetQuery builds the query.
func NewWidgetQuery(service widgetService) *WidgetQuery {
	return &WidgetQuery{service: service}
}

var _ gocommand.Querier[WidgetInput, dashboard.Widget] = (*WidgetQuery)(nil)

func (q *WidgetQuery) Query(ctx context.Context, input WidgetInput) (dashboard.Widget, error) {
	return q.service.Widget(ctx, input.Viewer, input.WidgetID)
}

// ChartHTMLInput asks for the rendered HTML of a chart widget.
type ChartHTMLInput = WidgetInput

type chartRenderer interface {
	Render(widget dashboard.Widget) (string, error)
}

// ChartHTMLQuery renders a chart widget through go-echarts.
type ChartHTMLQuery struct {
	widgets  widgetService
	renderer chartRenderer
}

// NewChartHTMLQuery builds the query.
func NewChartHTMLQuery(widgets widgetService, renderer chartRenderer) *ChartHTMLQuery {
	return &ChartHTMLQuery{widgets: widgets, renderer: renderer}
}

var _ gocommand.Querier[ChartHTMLInput, string] = (*ChartHTMLQuery)(nil)

func (q *ChartHTMLQuery) Query(ctx context.Context, input ChartHTMLInput) (string, error) {
	widget, err := q.widgets.Widget(ctx, input.Viewer, input.WidgetID)
	if err != nil {
		return "", err
	}
	return q.renderer.Render(widget)
}
