// Package connect coordinates popup-based OAuth flows that import ad accounts.
// Each Attempt is owned by one goroutine that races the detection channels
// (result message, popup closed, focus regained, timeout, manual cancel) and
// reaches exactly one terminal state.
package connect

import (
	"context"
	"time"

	"github.com/dashboardai/dashboardai/pkg/backend"
)

// State is the lifecycle position of an Attempt.
type State int32

const (
	StateIdle State = iota
	StateAwaitingPopup
	StateAwaitingResult
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPopup:
		return "awaiting_popup"
	case StateAwaitingResult:
		return "awaiting_result"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no transition can leave s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// CancelReason tells which channel cancelled an attempt.
type CancelReason string

const (
	CancelledByUser           CancelReason = "user"
	CancelledByTimeout        CancelReason = "timeout"
	CancelledByFocusHeuristic CancelReason = "focus"
	CancelledByShutdown       CancelReason = "shutdown"
)

// Popup is the provider window opened for one attempt. Only the owning
// attempt closes it.
type Popup interface {
	Closed() bool
	Close() error
}

// Launcher opens the provider authorization page. A nil Popup with a nil
// error means the window was blocked.
type Launcher interface {
	Open(ctx context.Context, attemptID, url string) (Popup, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, attemptID, url string) (Popup, error)

func (f LauncherFunc) Open(ctx context.Context, attemptID, url string) (Popup, error) {
	return f(ctx, attemptID, url)
}

// ProviderConfig describes one OAuth provider flow.
type ProviderConfig struct {
	Name string
	// AuthURL builds the authorization URL with the correlation token in
	// its state parameter.
	AuthURL func(state string) string
	// Timeout overrides the coordinator timeout when positive.
	Timeout time.Duration
}

// MessageType discriminates result messages.
type MessageType string

const (
	MessageSuccess MessageType = "OAUTH_SUCCESS"
	MessageError   MessageType = "OAUTH_ERROR"
)

// Message is the structured result posted by the callback page.
type Message struct {
	Origin string        `json:"origin"`
	State  string        `json:"state"`
	Type   MessageType   `json:"type"`
	Data   *MessageData  `json:"data,omitempty"`
	Error  *ErrorPayload `json:"error,omitempty"`
}

// MessageData carries the imported accounts of a successful flow.
type MessageData struct {
	Accounts []backend.ImportedAccount `json:"accounts"`
}

// ErrorPayload carries the provider's error text.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Outcome is the terminal result of an attempt.
type Outcome struct {
	State    State        `json:"state"`
	Reason   CancelReason `json:"reason,omitempty"`
	Error    string       `json:"error,omitempty"`
	Message  string       `json:"message,omitempty"`
	Accounts int          `json:"accounts"`
	EndedAt  time.Time    `json:"ended_at"`
}

// Snapshot is a read-only view of an attempt.
type Snapshot struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	State     State     `json:"state"`
	AuthURL   string    `json:"auth_url"`
	StartedAt time.Time `json:"started_at"`
	Deadline  time.Time `json:"deadline"`
	Outcome   *Outcome  `json:"outcome,omitempty"`
}

// NotificationLevel styles a user notification.
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
	LevelInfo    NotificationLevel = "info"
)

// Notification is a user-visible message about an attempt. Kind
// "close_popup" asks the opener page to close the popup window.
type Notification struct {
	AttemptID string            `json:"attempt_id"`
	Kind      string            `json:"kind"`
	Level     NotificationLevel `json:"level,omitempty"`
	Text      string            `json:"text,omitempty"`
	State     State             `json:"state"`
	Reason    CancelReason      `json:"reason,omitempty"`
	Accounts  int               `json:"accounts,omitempty"`
}

// Notifier surfaces notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Refetcher reloads the integration list after a successful import.
type Refetcher interface {
	Refresh(ctx context.Context) error
}

// Telemetry records coordinator events.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notification) {}
