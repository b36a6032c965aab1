package dashboard

import (
	"context"

	"github.com/dashboardai/dashboardai/pkg/broadcast"
)

// BroadcastHook fans out widget events to in-process subscribers.
type BroadcastHook struct {
	hub *broadcast.Hub[WidgetEvent]
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{hub: broadcast.NewHub[WidgetEvent](16)}
}

// WidgetUpdated satisfies the RefreshHook interface and broadcasts events.
func (h *BroadcastHook) WidgetUpdated(ctx context.Context, event WidgetEvent) error {
	h.hub.Publish(ctx, event)
	return nil
}

// Subscribe returns a channel of widget events and a cancel func.
func (h *BroadcastHook) Subscribe() (<-chan WidgetEvent, func()) {
	return h.hub.Subscribe()
}

// Close ends every subscription.
func (h *BroadcastHook) Close() {
	h.hub.Close()
}

// Visible reports whether event belongs to viewer's dashboard.
func (e WidgetEvent) Visible(viewer ViewerContext) bool {
	return e.UserID == viewer.UserID
}
