package connect

import (
	"context"
	"sync/atomic"

	"github.com/dashboardai/dashboardai/pkg/broadcast"
)

// HubNotifier publishes notifications on a broadcast hub so every connected
// WebSocket sees them.
type HubNotifier struct {
	hub *broadcast.Hub[Notification]
}

// NewHubNotifier creates a notifier with its own hub.
func NewHubNotifier() *HubNotifier {
	return &HubNotifier{hub: broadcast.NewHub[Notification](16)}
}

func (n *HubNotifier) Notify(ctx context.Context, note Notification) {
	n.hub.Publish(ctx, note)
}

// Subscribe returns a channel of notifications and a cancel func.
func (n *HubNotifier) Subscribe() (<-chan Notification, func()) {
	return n.hub.Subscribe()
}

// Close ends every subscription.
func (n *HubNotifier) Close() {
	n.hub.Close()
}

// RemotePopup is a popup window living in the user's browser. The opener
// page reports its lifecycle over HTTP; Close asks the opener to close it.
type RemotePopup struct {
	attemptID string
	notifier  Notifier
	closed    atomic.Bool
}

// Closed reports whether the opener said the window is gone.
func (p *RemotePopup) Closed() bool {
	return p.closed.Load()
}

// MarkClosed records that the user closed the window.
func (p *RemotePopup) MarkClosed() {
	p.closed.Store(true)
}

// Close publishes a close_popup notification once.
func (p *RemotePopup) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.notifier.Notify(context.Background(), Notification{
		AttemptID: p.attemptID,
		Kind:      "close_popup",
	})
	return nil
}

// RemoteLauncher hands out RemotePopups. The opener page pre-opens a blank
// window before asking to start a flow and reports whether that worked.
type RemoteLauncher struct {
	Notifier Notifier
	// Opened is false when the browser blocked the pre-opened window.
	Opened bool
}

func (l RemoteLauncher) Open(_ context.Context, attemptID, _ string) (Popup, error) {
	if !l.Opened {
		return nil, nil
	}
	notifier := l.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &RemotePopup{attemptID: attemptID, notifier: notifier}, nil
}
