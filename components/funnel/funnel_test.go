package funnel

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashboardai/dashboardai/pkg/kvstore"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%d", n)
	}
}

func newTestService(t *testing.T, store kvstore.Store) *Service {
	t.Helper()
	svc, err := NewService(Options{
		Store: store,
		NewID: sequentialIDs(),
		Now:   func() time.Time { return time.Date(2025, 7, 25, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func TestAddNodeFromTemplates(t *testing.T) {
	var g Graph
	node, err := g.AddNode(NodeInput{Template: "facebookAds", Position: Position{X: 10, Y: 20}}, "1")
	require.NoError(t, err)
	assert.Equal(t, "facebookAds-1", node.ID)
	assert.Equal(t, "Facebook Ads", node.Label)
	assert.Equal(t, Top, node.Category)
	assert.Equal(t, Position{X: 10, Y: 20}, node.Position)

	payt, err := g.AddNode(NodeInput{Template: "payt", Label: "ignored"}, "2")
	require.NoError(t, err)
	assert.Equal(t, "Payt", payt.Label)
	assert.Equal(t, Bottom, payt.Category)

	custom, err := g.AddNode(NodeInput{Template: TemplateCustom, Label: "Webinar", Category: Top}, "3")
	require.NoError(t, err)
	assert.Equal(t, "Webinar", custom.Label)
	assert.Equal(t, Top, custom.Category)

	_, err = g.AddNode(NodeInput{Template: TemplateCustom, Category: "LADO"}, "4")
	assert.ErrorIs(t, err, ErrInvalidNode)
	_, err = g.AddNode(NodeInput{Template: "tiktok"}, "5")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
	_, err = g.AddNode(NodeInput{Template: "payt"}, "2")
	assert.ErrorIs(t, err, ErrInvalidNode)

	assert.Len(t, g.Nodes, 3)
}

func TestTemplatesCategories(t *testing.T) {
	want := map[string]Category{
		"facebookAds": Top, "googleAds": Top,
		"vturb": Middle, "utmify": Middle,
		"payt": Bottom, "custom": Middle,
	}
	got := map[string]Category{}
	for _, tmpl := range Templates() {
		got[tmpl.Type] = tmpl.Category
	}
	assert.Equal(t, want, got)
}

func TestConnectRules(t *testing.T) {
	var g Graph
	a, _ := g.AddNode(NodeInput{Template: "facebookAds"}, "a")
	b, _ := g.AddNode(NodeInput{Template: "vturb"}, "b")

	edge, err := g.Connect(a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, Edge{ID: "edge-facebookAds-a-vturb-b", Source: a.ID, Target: b.ID}, edge)

	_, err = g.Connect(a.ID, b.ID)
	assert.ErrorIs(t, err, ErrDuplicateEdge)
	_, err = g.Connect(a.ID, a.ID)
	assert.ErrorIs(t, err, ErrSelfLoop)
	_, err = g.Connect(a.ID, "payt-x")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = g.Connect(b.ID, a.ID)
	require.NoError(t, err)
	assert.Len(t, g.Edges, 2)
}

func TestRemoveNodeDropsIncidentEdges(t *testing.T) {
	var g Graph
	a, _ := g.AddNode(NodeInput{Template: "facebookAds"}, "a")
	b, _ := g.AddNode(NodeInput{Template: "vturb"}, "b")
	c, _ := g.AddNode(NodeInput{Template: "payt"}, "c")
	_, _ = g.Connect(a.ID, b.ID)
	_, _ = g.Connect(b.ID, c.ID)
	_, _ = g.Connect(a.ID, c.ID)

	require.NoError(t, g.RemoveNode(b.ID))
	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, a.ID, g.Edges[0].Source)
	assert.Equal(t, c.ID, g.Edges[0].Target)

	assert.ErrorIs(t, g.RemoveNode(b.ID), ErrNodeNotFound)
}

func TestServicePersistsEdits(t *testing.T) {
	store := kvstore.NewMemory()
	svc := newTestService(t, store)
	ctx := context.Background()

	empty, err := svc.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, empty.Nodes)

	a, err := svc.AddNode(ctx, "u1", NodeInput{Template: "googleAds"})
	require.NoError(t, err)
	b, err := svc.AddNode(ctx, "u1", NodeInput{Template: "utmify"})
	require.NoError(t, err)
	_, err = svc.Connect(ctx, "u1", a.ID, b.ID)
	require.NoError(t, err)

	reopened := newTestService(t, store)
	doc, err := reopened.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 2)
	assert.Len(t, doc.Edges, 1)
	assert.True(t, doc.SavedAt.Equal(time.Date(2025, 7, 25, 12, 0, 0, 0, time.UTC)))

	other, err := reopened.Load(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other.Nodes)

	require.NoError(t, reopened.RemoveNode(ctx, "u1", a.ID))
	doc, err = svc.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 1)
	assert.Empty(t, doc.Edges)
}

func TestServiceRejectedEditIsNotSaved(t *testing.T) {
	svc := newTestService(t, kvstore.NewMemory())
	ctx := context.Background()

	a, err := svc.AddNode(ctx, "", NodeInput{Template: "payt"})
	require.NoError(t, err)
	_, err = svc.Connect(ctx, "", a.ID, a.ID)
	assert.ErrorIs(t, err, ErrSelfLoop)

	doc, err := svc.Load(ctx, "")
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 1)
	assert.Empty(t, doc.Edges)
}

func TestSaveDropsDanglingEdges(t *testing.T) {
	svc := newTestService(t, kvstore.NewMemory())
	ctx := context.Background()

	doc, err := svc.Save(ctx, "u1", Graph{
		Nodes: []Node{{ID: "payt-1", Type: "payt", Category: Bottom}, {ID: "vturb-1", Type: "vturb", Category: Middle}},
		Edges: []Edge{
			{ID: "e1", Source: "vturb-1", Target: "payt-1"},
			{ID: "e2", Source: "vturb-1", Target: "payt-1"},
			{ID: "e3", Source: "payt-1", Target: "gone"},
			{ID: "e4", Source: "payt-1", Target: "payt-1"},
		},
	})
	require.NoError(t, err)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "e1", doc.Edges[0].ID)
}

func TestCorruptDocumentFallsBackToEmpty(t *testing.T) {
	store := kvstore.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, kvstore.Entry{Key: DefaultKey + ":u1", Value: []byte("{not json")}))
	svc := newTestService(t, store)

	doc, err := svc.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, doc.Nodes)

	_, err = svc.AddNode(ctx, "u1", NodeInput{Template: "vturb"})
	require.NoError(t, err)
}

type failingStore struct{ kvstore.Store }

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk gone")
}

func TestStoreErrorsSurface(t *testing.T) {
	svc := newTestService(t, failingStore{Store: kvstore.NewMemory()})
	_, err := svc.AddNode(context.Background(), "u1", NodeInput{Template: "vturb"})
	assert.ErrorContains(t, err, "disk gone")
}

func TestServiceSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := kvstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "funnel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })
	svc := newTestService(t, store)

	_, err = svc.AddNode(ctx, "u1", NodeInput{Template: "facebookAds", Position: Position{X: 1.5, Y: 2}})
	require.NoError(t, err)
	doc, err := svc.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, Position{X: 1.5, Y: 2}, doc.Nodes[0].Position)
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := NewService(Options{})
	assert.Error(t, err)
}
