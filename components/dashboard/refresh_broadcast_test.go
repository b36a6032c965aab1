package dashboard

import (
	"context"
	"testing"
)

func TestBroadcastHookDeliversServiceEvents(t *testing.T) {
	hook := NewBroadcastHook()
	events, cancel := hook.Subscribe()
	defer cancel()

	svc := NewService(Options{RefreshHook: hook})
	viewer := ViewerContext{UserID: "ana"}
	if _, err := svc.AddWidget(context.Background(), viewer, WidgetSpec{ID: "m1", Kind: KindMetric, Title: "Clicks"}); err != nil {
		t.Fatalf("add widget: %v", err)
	}

	event := <-events
	if event.Reason != "add" || event.WidgetID != "m1" {
		t.Fatalf("unexpected event %#v", event)
	}
	if !event.Visible(viewer) || event.Visible(ViewerContext{UserID: "bob"}) {
		t.Fatalf("event visibility not scoped to viewer")
	}
}
