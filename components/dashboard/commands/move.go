package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/dashboardai/dashboardai/components/dashboard"
)

// MoveWidgetInput contains the new lg rectangle of a widget.
type MoveWidgetInput struct {
	Viewer    dashboard.ViewerContext `json:"-"`
	WidgetID  string                  `json:"widget_id"`
	Placement dashboard.Placement     `json:"placement"`
}

type moveService interface {
	MoveWidget(ctx context.Context, viewer dashboard.ViewerContext, widgetID string, placement dashboard.Placement) error
}

// MoveWidgetCommand wraps Service.MoveWidget.
type MoveWidgetCommand struct {
	service   moveService
	telemetry Telemetry
}

// NewMoveWidgetCommand creates the command.
func NewMoveWidgetCommand(service moveService, telemetry Telemetry) *MoveWidgetCommand {
	return &MoveWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[MoveWidgetInput] = (*MoveWidgetCommand)(nil)

func (c *MoveWidgetCommand) Execute(ctx context.Context, msg MoveWidgetInput) error {
	if c.service == nil {
		return errMissingService
	}
	if msg.WidgetID == "" {
		return errors.New("move command requires widget id")
	}
	if err := c.service.MoveWidget(ctx, msg.Viewer, msg.WidgetID, msg.Placement); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.move", map[string]any{
		"user_id":   msg.Viewer.UserID,
		"widget_id": msg.WidgetID,
		"x":         msg.Placement.X,
		"y":         msg.Placement.Y,
	})
	return nil
}
