package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOptimalPositionEmptyGrid(t *testing.T) {
	grid := DefaultGridConfig()
	got := grid.FindOptimalPosition(nil)
	if got != (Placement{X: 0, Y: 0, W: 6, H: 4}) {
		t.Fatalf("unexpected placement %+v", got)
	}
}

func TestFindOptimalPositionBelowExisting(t *testing.T) {
	grid := DefaultGridConfig()
	existing := []Widget{
		{ID: "a", Placement: Placement{X: 0, Y: 0, W: 6, H: 4}},
		{ID: "b", Placement: Placement{X: 6, Y: 2, W: 6, H: 5}},
	}
	got := grid.FindOptimalPosition(existing)
	if got != (Placement{X: 0, Y: 7, W: 6, H: 4}) {
		t.Fatalf("unexpected placement %+v", got)
	}
}

func TestClampBounds(t *testing.T) {
	grid := DefaultGridConfig()
	cases := []struct {
		name string
		bp   Breakpoint
		in   LayoutItem
		want LayoutItem
	}{
		{"negative", BreakpointLG, LayoutItem{I: "a", X: -3, Y: -1, W: 4, H: 4}, LayoutItem{I: "a", X: 0, Y: 0, W: 4, H: 4}},
		{"too small", BreakpointLG, LayoutItem{I: "a", W: 1, H: 1}, LayoutItem{I: "a", W: 2, H: 2}},
		{"too tall and wide", BreakpointLG, LayoutItem{I: "a", W: 20, H: 12}, LayoutItem{I: "a", W: 12, H: 8}},
		{"pushed back inside", BreakpointMD, LayoutItem{I: "a", X: 8, W: 6, H: 4}, LayoutItem{I: "a", X: 4, W: 6, H: 4}},
		{"xxs min width", BreakpointXXS, LayoutItem{I: "a", W: 1, H: 4}, LayoutItem{I: "a", W: 2, H: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, grid.clamp(tc.bp, tc.in))
		})
	}
}

func TestDeriveNarrowBreakpointsStack(t *testing.T) {
	grid := DefaultGridConfig()
	items := []LayoutItem{
		{I: "a", X: 0, Y: 0, W: 6, H: 4},
		{I: "b", X: 6, Y: 0, W: 6, H: 4},
	}

	md := grid.Derive(items, BreakpointMD)
	assert.Equal(t, LayoutItem{I: "b", X: 4, Y: 0, W: 6, H: 4}, md[1])

	sm := grid.Derive(items, BreakpointSM)
	assert.Equal(t, 6, sm[0].W)
	assert.Equal(t, 0, sm[1].X)

	xs := grid.Derive(items, BreakpointXS)
	for _, item := range xs {
		assert.Equal(t, 0, item.X)
		assert.Equal(t, 4, item.W)
	}
	xxs := grid.Derive(items, BreakpointXXS)
	for _, item := range xxs {
		assert.Equal(t, 0, item.X)
		assert.Equal(t, 2, item.W)
	}
}

func TestResolveFillsMissingBreakpointsFromWidest(t *testing.T) {
	grid := DefaultGridConfig()
	widgets := []Widget{
		{ID: "a", Placement: Placement{X: 0, Y: 0, W: 6, H: 4}},
		{ID: "b", Placement: Placement{X: 6, Y: 0, W: 6, H: 4}},
	}
	saved := LayoutSnapshot{
		BreakpointMD: {{I: "a", X: 0, Y: 0, W: 10, H: 3}, {I: "ghost", X: 0, Y: 0, W: 2, H: 2}},
	}

	resolved := grid.Resolve(widgets, saved)
	require.Len(t, resolved, len(Breakpoints))

	md := resolved[BreakpointMD]
	require.Len(t, md, 2)
	assert.Equal(t, "a", md[0].I)
	assert.Equal(t, 10, md[0].W)
	assert.Equal(t, "b", md[1].I)

	lg := resolved[BreakpointLG]
	require.Len(t, lg, 2)
	assert.Equal(t, 10, lg[0].W, "lg derives from the widest saved layout")
	assert.Equal(t, LayoutItem{I: "b", X: 6, Y: 0, W: 6, H: 4}, lg[1])

	for _, item := range resolved[BreakpointXXS] {
		assert.Equal(t, 2, item.W)
		assert.Equal(t, 0, item.X)
	}
}

func TestResolveWithoutSavedLayoutsUsesPlacements(t *testing.T) {
	grid := DefaultGridConfig()
	widgets := []Widget{{ID: "a", Placement: Placement{X: 0, Y: 0, W: 6, H: 4}}}
	resolved := grid.Resolve(widgets, nil)
	assert.Equal(t, []LayoutItem{{I: "a", X: 0, Y: 0, W: 6, H: 4}}, resolved[BreakpointLG])
	assert.Equal(t, []LayoutItem{{I: "a", X: 0, Y: 0, W: 4, H: 4}}, resolved[BreakpointXS])
}

func TestNormalizeSnapshotDropsUnknownEntries(t *testing.T) {
	grid := DefaultGridConfig()
	widgets := []Widget{{ID: "a"}}
	snapshot := LayoutSnapshot{
		BreakpointLG: {{I: "a", W: 4, H: 4}, {I: "a", W: 8, H: 4}, {I: "zzz", W: 4, H: 4}},
		"huge":       {{I: "a", W: 4, H: 4}},
	}
	out := grid.normalizeSnapshot(snapshot, widgets)
	require.Len(t, out, 1)
	assert.Equal(t, []LayoutItem{{I: "a", W: 4, H: 4}}, out[BreakpointLG])
}
