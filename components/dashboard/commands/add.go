package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/dashboardai/dashboardai/components/dashboard"
)

// AddWidgetInput adds one widget to the viewer's dashboard. Transports set
// Spec.ID up front so they can read the widget back after Execute.
type AddWidgetInput struct {
	Viewer dashboard.ViewerContext `json:"-"`
	Spec   dashboard.WidgetSpec    `json:"widget"`
}

type addService interface {
	AddWidget(ctx context.Context, viewer dashboard.ViewerContext, spec dashboard.WidgetSpec) (dashboard.Widget, error)
}

// AddWidgetCommand wraps Service.AddWidget.
type AddWidgetCommand struct {
	service   addService
	telemetry Telemetry
}

// NewAddWidgetCommand creates a command instance.
func NewAddWidgetCommand(service addService, telemetry Telemetry) *AddWidgetCommand {
	return &AddWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[AddWidgetInput] = (*AddWidgetCommand)(nil)

// Execute validates and stores the widget.
func (c *AddWidgetCommand) Execute(ctx context.Context, msg AddWidgetInput) error {
	if c.service == nil {
		return errMissingService
	}
	widget, err := c.service.AddWidget(ctx, msg.Viewer, msg.Spec)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.add", map[string]any{
		"user_id":   msg.Viewer.UserID,
		"widget_id": widget.ID,
	})
	return nil
}
