package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashboardai/dashboardai/pkg/kvstore"
)

func TestKVSnapshotStoreEmptyLoad(t *testing.T) {
	store := NewInMemorySnapshotStore()
	doc, err := store.Load(context.Background(), ViewerContext{UserID: "ana"})
	require.NoError(t, err)
	assert.Empty(t, doc.Widgets)
	assert.NotNil(t, doc.Layouts)
}

func TestKVSnapshotStoreRoundTripPerViewer(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySnapshotStore()
	doc := Document{
		Widgets: []Widget{{ID: "m1", Kind: KindMetric, Title: "Cliques", Placement: Placement{W: 6, H: 4}}},
		Layouts: LayoutSnapshot{BreakpointLG: {{I: "m1", W: 6, H: 4}}},
	}
	require.NoError(t, store.Save(ctx, ViewerContext{UserID: "ana"}, doc))

	loaded, err := store.Load(ctx, ViewerContext{UserID: "ana"})
	require.NoError(t, err)
	assert.Equal(t, doc.Widgets, loaded.Widgets)
	assert.Equal(t, doc.Layouts, loaded.Layouts)

	other, err := store.Load(ctx, ViewerContext{UserID: "bob"})
	require.NoError(t, err)
	assert.Empty(t, other.Widgets)
}

func TestKVSnapshotStoreKeys(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	store := NewKVSnapshotStore(kv, "custom")
	require.NoError(t, store.Save(ctx, ViewerContext{}, Document{}))

	raw, err := kv.Get(ctx, "custom")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
	raw, err = kv.Get(ctx, "custom.widgets")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestKVSnapshotStoreReportsCorruptData(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Put(ctx, kvstore.Entry{Key: DefaultLayoutKey + ".widgets", Value: []byte(`{"broken"`)}))
	store := NewKVSnapshotStore(kv, "")

	doc, err := store.Load(ctx, ViewerContext{})
	var corrupt *CorruptSnapshotError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, DefaultLayoutKey+".widgets", corrupt.Key)
	assert.Empty(t, doc.Widgets)
	assert.NotNil(t, doc.Layouts)
}

func TestKVSnapshotStoreOnSQLite(t *testing.T) {
	ctx := context.Background()
	kv, err := kvstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "dashboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close(ctx) })

	store := NewKVSnapshotStore(kv, "")
	doc := Document{
		Widgets: []Widget{{
			ID:           "chart_1",
			Kind:         KindChart,
			Title:        "Vendas",
			ChartVariant: ChartPie,
			Dataset:      []map[string]any{{"name": "Desktop", "value": 60.0}},
			Placement:    Placement{W: 6, H: 4},
		}},
		Layouts: LayoutSnapshot{BreakpointXS: {{I: "chart_1", W: 4, H: 4}}},
	}
	require.NoError(t, store.Save(ctx, ViewerContext{UserID: "ana"}, doc))
	loaded, err := store.Load(ctx, ViewerContext{UserID: "ana"})
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)
}
