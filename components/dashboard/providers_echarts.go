package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "360px"

// ErrNotChart is returned when rendering a widget that is not a chart.
var ErrNotChart = errors.New("dashboard: widget is not a chart")

// DefaultChartColors is the palette used when a widget sets no colors.
var DefaultChartColors = []string{"#3B82F6", "#8B5CF6", "#10B981", "#F59E0B", "#EF4444", "#06B6D4"}

// ChartPoint is one labeled value of a chart widget's dataset.
type ChartPoint struct {
	Label string
	Value float64
}

// ChartRenderer draws chart widgets as standalone go-echarts HTML.
type ChartRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
}

// ChartRendererOption customizes renderer behavior.
type ChartRendererOption func(*ChartRenderer)

// WithChartCache injects a render cache.
func WithChartCache(cache RenderCache) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the chart theme (defaults to Westeros).
func WithChartTheme(theme string) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.theme = theme
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.assetsHost = host
	}
}

// NewChartRenderer builds a renderer with a five minute cache.
func NewChartRenderer(options ...ChartRendererOption) *ChartRenderer {
	r := &ChartRenderer{
		cache: NewChartCache(5 * time.Minute),
		theme: types.ThemeWesteros,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Render returns the chart HTML for widget.
func (r *ChartRenderer) Render(widget Widget) (string, error) {
	if widget.Kind != KindChart {
		return "", ErrNotChart
	}
	render := func() (string, error) {
		return r.render(widget)
	}
	if r.cache == nil {
		return render()
	}
	key := widget.ID + ":" + contentHash(struct {
		Title   string
		Variant ChartVariant
		Dataset []map[string]any
		Config  RenderConfig
	}{widget.Title, widget.ChartVariant, widget.Dataset, widget.RenderConfig})
	return r.cache.GetOrRender(key, render)
}

// Forget drops cached renders of a widget.
func (r *ChartRenderer) Forget(widgetID string) {
	if r.cache != nil {
		r.cache.Invalidate(widgetID + ":")
	}
}

func (r *ChartRenderer) render(widget Widget) (string, error) {
	points := ChartPoints(widget)
	colors := widget.RenderConfig.Colors
	if len(colors) == 0 {
		colors = DefaultChartColors
	}
	title := widget.Title
	if title == "" {
		title = "Chart"
	}
	switch widget.ChartVariant {
	case ChartBar:
		bar := charts.NewBar()
		bar.SetGlobalOptions(r.globalChartOptions(title)...)
		bar.SetXAxis(labels(points))
		bar.AddSeries(seriesName(widget), toBarData(points), charts.WithItemStyleOpts(opts.ItemStyle{Color: colors[0]}))
		return renderChart(bar)
	case ChartLine:
		line := charts.NewLine()
		line.SetGlobalOptions(r.globalChartOptions(title)...)
		line.SetXAxis(labels(points))
		line.AddSeries(seriesName(widget), toLineData(points), charts.WithItemStyleOpts(opts.ItemStyle{Color: colors[0]}))
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	case ChartPie:
		pie := charts.NewPie()
		pie.SetGlobalOptions(r.globalChartOptions(title)...)
		pie.AddSeries(seriesName(widget), toPieData(points, colors))
		return renderChart(pie)
	default:
		return "", fmt.Errorf("dashboard: unsupported chart variant %q", widget.ChartVariant)
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *ChartRenderer) globalChartOptions(title string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  r.theme,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

// ChartPoints extracts the plotted values of a chart widget. Bar and line
// charts read x_key/y_key (default name/value); pie charts read x_key and
// data_key.
func ChartPoints(widget Widget) []ChartPoint {
	cfg := widget.RenderConfig
	labelKey := cfg.XKey
	if labelKey == "" {
		labelKey = "name"
	}
	valueKey := cfg.YKey
	if widget.ChartVariant == ChartPie && cfg.DataKey != "" {
		valueKey = cfg.DataKey
	}
	if valueKey == "" {
		valueKey = cfg.DataKey
	}
	if valueKey == "" {
		valueKey = "value"
	}
	points := make([]ChartPoint, 0, len(widget.Dataset))
	for i, row := range widget.Dataset {
		label := labelValue(row[labelKey])
		if label == "" {
			label = fmt.Sprintf("Item %d", i+1)
		}
		points = append(points, ChartPoint{Label: label, Value: float64Value(row[valueKey])})
	}
	return points
}

func seriesName(widget Widget) string {
	if widget.RenderConfig.YKey != "" {
		return widget.RenderConfig.YKey
	}
	if widget.RenderConfig.DataKey != "" {
		return widget.RenderConfig.DataKey
	}
	return widget.Title
}

func labels(points []ChartPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Label
	}
	return out
}

func toBarData(points []ChartPoint) []opts.BarData {
	data := make([]opts.BarData, len(points))
	for i, point := range points {
		data[i] = opts.BarData{Name: point.Label, Value: point.Value}
	}
	return data
}

func toLineData(points []ChartPoint) []opts.LineData {
	data := make([]opts.LineData, len(points))
	for i, point := range points {
		data[i] = opts.LineData{Name: point.Label, Value: point.Value}
	}
	return data
}

func toPieData(points []ChartPoint, colors []string) []opts.PieData {
	data := make([]opts.PieData, len(points))
	for i, point := range points {
		data[i] = opts.PieData{
			Name:      point.Label,
			Value:     point.Value,
			ItemStyle: &opts.ItemStyle{Color: colors[i%len(colors)]},
		}
	}
	return data
}

func labelValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case json.Number:
		return val.String()
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func float64Value(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	}
	return 0
}
