package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/dashboardai/dashboardai/components/dashboard"
)

// UpdateLayoutsInput carries the full per-breakpoint snapshot reported by the
// grid after a drag or resize.
type UpdateLayoutsInput struct {
	Viewer  dashboard.ViewerContext  `json:"-"`
	Layouts dashboard.LayoutSnapshot `json:"layouts"`
}

type layoutsService interface {
	UpdateLayouts(ctx context.Context, viewer dashboard.ViewerContext, snapshot dashboard.LayoutSnapshot) error
}

// UpdateLayoutsCommand persists a layout snapshot.
type UpdateLayoutsCommand struct {
	service   layoutsService
	telemetry Telemetry
}

// NewUpdateLayoutsCommand creates the command.
func NewUpdateLayoutsCommand(service layoutsService, telemetry Telemetry) *UpdateLayoutsCommand {
	return &UpdateLayoutsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateLayoutsInput] = (*UpdateLayoutsCommand)(nil)

// Execute replaces the saved snapshot.
func (c *UpdateLayoutsCommand) Execute(ctx context.Context, msg UpdateLayoutsInput) error {
	if c.service == nil {
		return errMissingService
	}
	if err := c.service.UpdateLayouts(ctx, msg.Viewer, msg.Layouts); err != nil {
		return err
	}
	items := 0
	for _, bp := range msg.Layouts {
		items += len(bp)
	}
	c.telemetry.Record(ctx, "dashboard.command.layouts", map[string]any{
		"user_id":     msg.Viewer.UserID,
		"breakpoints": len(msg.Layouts),
		"items":       items,
	})
	return nil
}
