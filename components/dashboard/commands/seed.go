package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/dashboardai/dashboardai/components/dashboard"
)

// RestoreDashboardInput replaces a viewer's dashboard with a saved document.
// An empty document resets the dashboard.
type RestoreDashboardInput struct {
	Viewer   dashboard.ViewerContext `json:"-"`
	Document dashboard.Document      `json:"document"`
}

type restoreService interface {
	ReplaceDocument(ctx context.Context, viewer dashboard.ViewerContext, doc dashboard.Document) error
}

// RestoreDashboardCommand backs the layout import and reset CLI commands.
type RestoreDashboardCommand struct {
	service   restoreService
	telemetry Telemetry
}

// NewRestoreDashboardCommand builds the command.
func NewRestoreDashboardCommand(service restoreService, telemetry Telemetry) *RestoreDashboardCommand {
	return &RestoreDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RestoreDashboardInput] = (*RestoreDashboardCommand)(nil)

// Execute swaps the stored document.
func (c *RestoreDashboardCommand) Execute(ctx context.Context, msg RestoreDashboardInput) error {
	if c.service == nil {
		return errMissingService
	}
	if err := c.service.ReplaceDocument(ctx, msg.Viewer, msg.Document); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.restore", map[string]any{
		"user_id": msg.Viewer.UserID,
		"widgets": len(msg.Document.Widgets),
	})
	return nil
}
