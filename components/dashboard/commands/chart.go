package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gocommand "github.com/goliatone/go-command"

	"github.com/dashboardai/dashboardai/components/dashboard"
	"github.com/dashboardai/dashboardai/pkg/backend"
)

// ImportGeneratedChartInput asks the AI backend for a chart and adds the
// result as a chart widget. WidgetID is optional.
type ImportGeneratedChartInput struct {
	Viewer         dashboard.ViewerContext `json:"-"`
	WidgetID       string                  `json:"widget_id,omitempty"`
	Prompt         string                  `json:"prompt"`
	SpreadsheetURL string                  `json:"spreadsheet_url,omitempty"`
}

type schemaValidator interface {
	Validate(name string, payload any) error
}

// ImportGeneratedChartCommand turns an AI chart configuration into a widget.
type ImportGeneratedChartCommand struct {
	charts    backend.ChartClient
	schemas   schemaValidator
	service   addService
	telemetry Telemetry
}

// NewImportGeneratedChartCommand wires the command. A nil schemas uses the
// built-in generated chart schema.
func NewImportGeneratedChartCommand(charts backend.ChartClient, schemas schemaValidator, service addService, telemetry Telemetry) *ImportGeneratedChartCommand {
	if schemas == nil {
		schemas = dashboard.NewJSONSchemaValidator()
	}
	return &ImportGeneratedChartCommand{
		charts:    charts,
		schemas:   schemas,
		service:   service,
		telemetry: normalizeTelemetry(telemetry),
	}
}

var _ gocommand.Commander[ImportGeneratedChartInput] = (*ImportGeneratedChartCommand)(nil)

// Execute generates, validates and stores the chart.
func (c *ImportGeneratedChartCommand) Execute(ctx context.Context, msg ImportGeneratedChartInput) error {
	if c.service == nil || c.charts == nil {
		return errMissingService
	}
	prompt := strings.TrimSpace(msg.Prompt)
	if prompt == "" {
		return fmt.Errorf("%w: prompt is required", dashboard.ErrInvalidWidget)
	}
	generated, err := c.charts.GenerateChart(ctx, backend.ChartRequest{
		Prompt:         prompt,
		SpreadsheetURL: msg.SpreadsheetURL,
	})
	if err != nil {
		return err
	}
	if err := c.schemas.Validate(dashboard.SchemaGeneratedChart, map[string]any(generated)); err != nil {
		return fmt.Errorf("%w: %v", dashboard.ErrInvalidWidget, err)
	}
	spec, err := SpecFromGeneratedChart(generated)
	if err != nil {
		return err
	}
	spec.ID = msg.WidgetID
	widget, err := c.service.AddWidget(ctx, msg.Viewer, spec)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.chart_import", map[string]any{
		"user_id":   msg.Viewer.UserID,
		"widget_id": widget.ID,
		"variant":   string(widget.ChartVariant),
		"points":    len(widget.Dataset),
	})
	return nil
}

// SpecFromGeneratedChart maps `{type, title, data, config}` onto a chart
// widget spec.
func SpecFromGeneratedChart(chart backend.GeneratedChart) (dashboard.WidgetSpec, error) {
	variant, _ := chart["type"].(string)
	if variant == "" {
		return dashboard.WidgetSpec{}, errors.New("generated chart has no type")
	}
	title, _ := chart["title"].(string)
	if strings.TrimSpace(title) == "" {
		title = "Gráfico gerado"
	}
	spec := dashboard.WidgetSpec{
		Kind:         dashboard.KindChart,
		Title:        title,
		ChartVariant: dashboard.ChartVariant(variant),
	}
	if rows, ok := chart["data"].([]any); ok {
		spec.Dataset = make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			if m, ok := row.(map[string]any); ok {
				spec.Dataset = append(spec.Dataset, m)
			}
		}
	}
	if cfg, ok := chart["config"].(map[string]any); ok {
		spec.RenderConfig.XKey, _ = cfg["xKey"].(string)
		spec.RenderConfig.YKey, _ = cfg["yKey"].(string)
		spec.RenderConfig.DataKey, _ = cfg["dataKey"].(string)
		if colors, ok := cfg["colors"].([]any); ok {
			for _, color := range colors {
				if s, ok := color.(string); ok && s != "" {
					spec.RenderConfig.Colors = append(spec.RenderConfig.Colors, s)
				}
			}
		}
	}
	return spec, nil
}
