package dashboard

import (
	"context"
)

// WidgetKind classifies a dashboard widget.
type WidgetKind string

const (
	KindChart  WidgetKind = "chart"
	KindMetric WidgetKind = "metric"
	KindCustom WidgetKind = "custom"
)

// ChartVariant selects the chart drawn by a chart widget.
type ChartVariant string

const (
	ChartBar  ChartVariant = "bar"
	ChartLine ChartVariant = "line"
	ChartPie  ChartVariant = "pie"
)

// Breakpoint names a responsive grid width class.
type Breakpoint string

const (
	BreakpointLG  Breakpoint = "lg"
	BreakpointMD  Breakpoint = "md"
	BreakpointSM  Breakpoint = "sm"
	BreakpointXS  Breakpoint = "xs"
	BreakpointXXS Breakpoint = "xxs"
)

// Breakpoints lists every breakpoint from widest to narrowest.
var Breakpoints = []Breakpoint{BreakpointLG, BreakpointMD, BreakpointSM, BreakpointXS, BreakpointXXS}

// Placement is a widget's grid rectangle in column/row units.
type Placement struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// RenderConfig tells the chart renderer which dataset fields to plot.
type RenderConfig struct {
	XKey    string   `json:"x_key,omitempty" yaml:"x_key,omitempty"`
	YKey    string   `json:"y_key,omitempty" yaml:"y_key,omitempty"`
	DataKey string   `json:"data_key,omitempty" yaml:"data_key,omitempty"`
	Colors  []string `json:"colors,omitempty" yaml:"colors,omitempty"`
}

// Widget is a dashboard tile.
type Widget struct {
	ID           string           `json:"id" yaml:"id"`
	Kind         WidgetKind       `json:"kind" yaml:"kind"`
	Title        string           `json:"title" yaml:"title"`
	ChartVariant ChartVariant     `json:"chart_variant,omitempty" yaml:"chart_variant,omitempty"`
	Dataset      []map[string]any `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	RenderConfig RenderConfig     `json:"render_config" yaml:"render_config"`
	Placement    Placement        `json:"placement" yaml:"placement"`
}

// WidgetSpec describes a widget to add. ID is client-generated; an empty ID
// is filled in by the service. A nil Placement asks for the default position.
type WidgetSpec struct {
	ID           string           `json:"id,omitempty" validate:"omitempty,max=128"`
	Kind         WidgetKind       `json:"kind" validate:"required,oneof=chart metric custom"`
	Title        string           `json:"title" validate:"required,max=200"`
	ChartVariant ChartVariant     `json:"chart_variant,omitempty" validate:"omitempty,oneof=bar line pie"`
	Dataset      []map[string]any `json:"dataset,omitempty"`
	RenderConfig RenderConfig     `json:"render_config"`
	Placement    *Placement       `json:"placement,omitempty"`
}

// LayoutItem is one widget's rectangle within a breakpoint layout. I is the
// widget id.
type LayoutItem struct {
	I string `json:"i" yaml:"i"`
	X int    `json:"x" yaml:"x"`
	Y int    `json:"y" yaml:"y"`
	W int    `json:"w" yaml:"w"`
	H int    `json:"h" yaml:"h"`
}

// Placement returns the item's rectangle.
func (i LayoutItem) Placement() Placement {
	return Placement{X: i.X, Y: i.Y, W: i.W, H: i.H}
}

// LayoutSnapshot maps each breakpoint to the items saved for it.
type LayoutSnapshot map[Breakpoint][]LayoutItem

// Clone returns a deep copy.
func (s LayoutSnapshot) Clone() LayoutSnapshot {
	out := make(LayoutSnapshot, len(s))
	for bp, items := range s {
		out[bp] = append([]LayoutItem(nil), items...)
	}
	return out
}

// ViewerContext identifies whose dashboard an operation targets.
type ViewerContext struct {
	UserID string `json:"user_id"`
}

// Layout is the read model served to the grid: widgets in insertion order
// plus the resolved items for every breakpoint.
type Layout struct {
	Widgets []Widget           `json:"widgets"`
	Layouts LayoutSnapshot     `json:"layouts"`
	Columns map[Breakpoint]int `json:"columns"`
}

// WidgetEvent describes a change broadcast to live dashboards.
type WidgetEvent struct {
	UserID   string  `json:"user_id,omitempty"`
	WidgetID string  `json:"widget_id,omitempty"`
	Widget   *Widget `json:"widget,omitempty"`
	Reason   string  `json:"reason"`
}

// SnapshotStore persists each viewer's widgets and layout snapshot. Save
// writes both parts together.
type SnapshotStore interface {
	Load(ctx context.Context, viewer ViewerContext) (Document, error)
	Save(ctx context.Context, viewer ViewerContext, doc Document) error
}

// Document is everything persisted for one dashboard.
type Document struct {
	Widgets []Widget       `json:"widgets" yaml:"widgets"`
	Layouts LayoutSnapshot `json:"layouts" yaml:"layouts"`
}

// RefreshHook notifies transports (WebSocket) about widget changes.
type RefreshHook interface {
	WidgetUpdated(ctx context.Context, event WidgetEvent) error
}

type noopRefreshHook struct{}

func (noopRefreshHook) WidgetUpdated(context.Context, WidgetEvent) error { return nil }
