package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesWidget(variant ChartVariant) Widget {
	return Widget{
		ID:           "chart_sales",
		Kind:         KindChart,
		Title:        "Vendas",
		ChartVariant: variant,
		Dataset: []map[string]any{
			{"month": "Jan", "sales": 400.0},
			{"month": "Fev", "sales": "300"},
			{"month": "Mar", "sales": 500},
		},
		RenderConfig: RenderConfig{XKey: "month", YKey: "sales", DataKey: "sales"},
	}
}

func TestChartRendererVariants(t *testing.T) {
	t.Parallel()
	renderer := NewChartRenderer(WithChartCache(nil))
	for _, variant := range []ChartVariant{ChartBar, ChartLine, ChartPie} {
		html, err := renderer.Render(salesWidget(variant))
		require.NoError(t, err, string(variant))
		assert.Contains(t, html, "echarts")
		assert.Contains(t, html, "Vendas")
	}
}

func TestChartRendererTheme(t *testing.T) {
	t.Parallel()
	renderer := NewChartRenderer(WithChartCache(nil), WithChartTheme("dark"))
	html, err := renderer.Render(salesWidget(ChartBar))
	require.NoError(t, err)
	assert.Contains(t, html, `"dark"`)
}

func TestChartRendererRejectsNonCharts(t *testing.T) {
	t.Parallel()
	renderer := NewChartRenderer()
	_, err := renderer.Render(Widget{ID: "m1", Kind: KindMetric})
	assert.ErrorIs(t, err, ErrNotChart)

	widget := salesWidget("radar")
	_, err = renderer.Render(widget)
	assert.Error(t, err)
}

func TestChartRendererUsesCache(t *testing.T) {
	t.Parallel()
	cache := NewChartCache(time.Minute)
	renderer := NewChartRenderer(WithChartCache(cache), WithChartAssetsHost("https://cdn.example/echarts/"))

	first, err := renderer.Render(salesWidget(ChartBar))
	require.NoError(t, err)
	second, err := renderer.Render(salesWidget(ChartBar))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.Len())
	assert.Contains(t, first, "https://cdn.example/echarts/")

	renderer.Forget("chart_sales")
	assert.Equal(t, 0, cache.Len())
}

func TestChartPointsDefaults(t *testing.T) {
	t.Parallel()
	widget := Widget{
		Kind:         KindChart,
		ChartVariant: ChartPie,
		Dataset: []map[string]any{
			{"name": "Desktop", "value": 60.0},
			{"value": 40.0},
		},
	}
	points := ChartPoints(widget)
	require.Len(t, points, 2)
	assert.Equal(t, ChartPoint{Label: "Desktop", Value: 60}, points[0])
	assert.Equal(t, "Item 2", points[1].Label)

	sales := ChartPoints(salesWidget(ChartBar))
	assert.Equal(t, []float64{400, 300, 500}, []float64{sales[0].Value, sales[1].Value, sales[2].Value})
}
