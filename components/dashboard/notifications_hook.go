package dashboard

import (
	"context"
	"errors"
)

// MultiHook forwards widget events to several hooks, e.g. the WebSocket
// broadcaster and an audit logger. Every hook runs; failures are joined.
type MultiHook []RefreshHook

// WidgetUpdated publishes the event to each configured hook.
func (m MultiHook) WidgetUpdated(ctx context.Context, event WidgetEvent) error {
	var errs []error
	for _, hook := range m {
		if hook == nil {
			continue
		}
		if err := hook.WidgetUpdated(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RefreshHookFunc adapts a function to RefreshHook.
type RefreshHookFunc func(ctx context.Context, event WidgetEvent) error

func (f RefreshHookFunc) WidgetUpdated(ctx context.Context, event WidgetEvent) error {
	return f(ctx, event)
}
