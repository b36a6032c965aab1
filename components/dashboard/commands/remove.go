package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/dashboardai/dashboardai/components/dashboard"
)

// RemoveWidgetInput identifies the widget to remove.
type RemoveWidgetInput struct {
	Viewer   dashboard.ViewerContext `json:"-"`
	WidgetID string                  `json:"widget_id"`
}

type removeService interface {
	RemoveWidget(ctx context.Context, viewer dashboard.ViewerContext, widgetID string) error
}

// RemoveWidgetCommand deletes a widget and its layout entries.
type RemoveWidgetCommand struct {
	service   removeService
	telemetry Telemetry
}

// NewRemoveWidgetCommand builds a command instance.
func NewRemoveWidgetCommand(service removeService, telemetry Telemetry) *RemoveWidgetCommand {
	return &RemoveWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RemoveWidgetInput] = (*RemoveWidgetCommand)(nil)

func (c *RemoveWidgetCommand) Execute(ctx context.Context, msg RemoveWidgetInput) error {
	if c.service == nil {
		return errMissingService
	}
	if err := c.service.RemoveWidget(ctx, msg.Viewer, msg.WidgetID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.remove", map[string]any{
		"user_id":   msg.Viewer.UserID,
		"widget_id": msg.WidgetID,
	})
	return nil
}
