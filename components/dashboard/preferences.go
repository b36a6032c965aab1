package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dashboardai/dashboardai/pkg/kvstore"
)

// DefaultLayoutKey is the storage key of the layout snapshot.
const DefaultLayoutKey = "dashboardai.layouts"

// CorruptSnapshotError reports stored data that could not be parsed. The
// Document returned alongside it holds whatever parts were readable.
type CorruptSnapshotError struct {
	Key string
	Err error
}

func (e *CorruptSnapshotError) Error() string {
	return fmt.Sprintf("dashboard: stored data under %s is unreadable: %v", e.Key, e.Err)
}

func (e *CorruptSnapshotError) Unwrap() error { return e.Err }

// KVSnapshotStore keeps each viewer's document in a key-value store: the
// layout snapshot under the layout key and the widget collection beside it.
type KVSnapshotStore struct {
	kv        kvstore.Store
	layoutKey string
}

// NewKVSnapshotStore builds a store under layoutKey (DefaultLayoutKey when
// empty).
func NewKVSnapshotStore(kv kvstore.Store, layoutKey string) *KVSnapshotStore {
	if layoutKey == "" {
		layoutKey = DefaultLayoutKey
	}
	return &KVSnapshotStore{kv: kv, layoutKey: layoutKey}
}

// NewInMemorySnapshotStore is a KVSnapshotStore over an in-memory map.
func NewInMemorySnapshotStore() *KVSnapshotStore {
	return NewKVSnapshotStore(kvstore.NewMemory(), "")
}

func (s *KVSnapshotStore) keys(viewer ViewerContext) (layouts, widgets string) {
	layouts = s.layoutKey
	widgets = s.layoutKey + ".widgets"
	if viewer.UserID != "" {
		layouts += ":" + viewer.UserID
		widgets += ":" + viewer.UserID
	}
	return layouts, widgets
}

// Load returns the stored document. Missing data yields an empty document.
// Unreadable data yields the readable parts and a *CorruptSnapshotError.
func (s *KVSnapshotStore) Load(ctx context.Context, viewer ViewerContext) (Document, error) {
	layoutKey, widgetKey := s.keys(viewer)
	doc := Document{Layouts: LayoutSnapshot{}}
	var corrupt error

	raw, err := s.kv.Get(ctx, widgetKey)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
	case err != nil:
		return Document{}, fmt.Errorf("dashboard: load widgets: %w", err)
	default:
		var widgets []Widget
		if err := json.Unmarshal(raw, &widgets); err != nil {
			corrupt = &CorruptSnapshotError{Key: widgetKey, Err: err}
		} else {
			doc.Widgets = widgets
		}
	}

	raw, err = s.kv.Get(ctx, layoutKey)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
	case err != nil:
		return Document{}, fmt.Errorf("dashboard: load layouts: %w", err)
	default:
		var layouts LayoutSnapshot
		if err := json.Unmarshal(raw, &layouts); err != nil {
			if corrupt == nil {
				corrupt = &CorruptSnapshotError{Key: layoutKey, Err: err}
			}
		} else if layouts != nil {
			doc.Layouts = layouts
		}
	}
	return doc, corrupt
}

// Save writes widgets and layouts in one Put.
func (s *KVSnapshotStore) Save(ctx context.Context, viewer ViewerContext, doc Document) error {
	layoutKey, widgetKey := s.keys(viewer)
	widgets := doc.Widgets
	if widgets == nil {
		widgets = []Widget{}
	}
	layouts := doc.Layouts
	if layouts == nil {
		layouts = LayoutSnapshot{}
	}
	widgetData, err := json.Marshal(widgets)
	if err != nil {
		return fmt.Errorf("dashboard: encode widgets: %w", err)
	}
	layoutData, err := json.Marshal(layouts)
	if err != nil {
		return fmt.Errorf("dashboard: encode layouts: %w", err)
	}
	return s.kv.Put(ctx,
		kvstore.Entry{Key: widgetKey, Value: widgetData},
		kvstore.Entry{Key: layoutKey, Value: layoutData},
	)
}
