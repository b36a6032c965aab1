package dashboard

// GridConfig bounds widget rectangles on the responsive grid.
type GridConfig struct {
	Columns  map[Breakpoint]int
	DefaultW int
	DefaultH int
	MinW     int
	MinH     int
	MaxH     int
}

// DefaultGridConfig returns the 12/10/6/4/2 column grid with 6x4 default
// tiles and heights between 2 and 8 rows.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Columns: map[Breakpoint]int{
			BreakpointLG:  12,
			BreakpointMD:  10,
			BreakpointSM:  6,
			BreakpointXS:  4,
			BreakpointXXS: 2,
		},
		DefaultW: 6,
		DefaultH: 4,
		MinW:     2,
		MinH:     2,
		MaxH:     8,
	}
}

func (g GridConfig) normalized() GridConfig {
	def := DefaultGridConfig()
	if len(g.Columns) == 0 {
		g.Columns = def.Columns
	}
	if g.DefaultW <= 0 {
		g.DefaultW = def.DefaultW
	}
	if g.DefaultH <= 0 {
		g.DefaultH = def.DefaultH
	}
	if g.MinW <= 0 {
		g.MinW = def.MinW
	}
	if g.MinH <= 0 {
		g.MinH = def.MinH
	}
	if g.MaxH < g.MinH {
		g.MaxH = def.MaxH
	}
	return g
}

// Cols returns the column count of bp. Unknown breakpoints use lg.
func (g GridConfig) Cols(bp Breakpoint) int {
	if cols, ok := g.Columns[bp]; ok && cols > 0 {
		return cols
	}
	return g.Columns[BreakpointLG]
}

// FindOptimalPosition returns where a new widget goes: the top-left corner of
// an empty grid, otherwise the first free row below every existing widget.
func (g GridConfig) FindOptimalPosition(existing []Widget) Placement {
	if len(existing) == 0 {
		return Placement{X: 0, Y: 0, W: g.DefaultW, H: g.DefaultH}
	}
	maxY := 0
	for _, w := range existing {
		if bottom := w.Placement.Y + w.Placement.H; bottom > maxY {
			maxY = bottom
		}
	}
	return Placement{X: 0, Y: maxY, W: g.DefaultW, H: g.DefaultH}
}

// ClampPlacement applies the lg bounds to p.
func (g GridConfig) ClampPlacement(p Placement) Placement {
	item := g.clamp(BreakpointLG, LayoutItem{X: p.X, Y: p.Y, W: p.W, H: p.H})
	return item.Placement()
}

// clamp keeps item inside the grid of bp.
func (g GridConfig) clamp(bp Breakpoint, item LayoutItem) LayoutItem {
	cols := g.Cols(bp)
	minW := min(g.MinW, cols)
	item.W = max(minW, min(item.W, cols))
	item.H = max(g.MinH, min(item.H, g.MaxH))
	item.X = max(0, min(item.X, cols-item.W))
	item.Y = max(0, item.Y)
	return item
}

func isNarrow(bp Breakpoint) bool {
	return bp == BreakpointXS || bp == BreakpointXXS
}

// deriveItem fits an item taken from a wider breakpoint into bp. Narrow
// breakpoints stack widgets full width.
func (g GridConfig) deriveItem(item LayoutItem, bp Breakpoint) LayoutItem {
	cols := g.Cols(bp)
	if isNarrow(bp) {
		item.X = 0
		item.W = cols
	} else if item.W > cols {
		item.W = cols
	}
	return g.clamp(bp, item)
}

// Derive fits every item of a wider layout into bp.
func (g GridConfig) Derive(items []LayoutItem, bp Breakpoint) []LayoutItem {
	out := make([]LayoutItem, len(items))
	for i, item := range items {
		out[i] = g.deriveItem(item, bp)
	}
	return out
}

// Resolve returns a complete layout for every breakpoint. Saved entries for
// live widgets are kept; missing breakpoints and missing widgets are derived
// from the widest saved layout, or from the widgets' own placements.
func (g GridConfig) Resolve(widgets []Widget, saved LayoutSnapshot) LayoutSnapshot {
	live := make(map[string]struct{}, len(widgets))
	for _, w := range widgets {
		live[w.ID] = struct{}{}
	}

	base := make(map[string]LayoutItem, len(widgets))
	for _, bp := range Breakpoints {
		items := filterLive(saved[bp], live)
		if len(items) == 0 {
			continue
		}
		for _, item := range items {
			base[item.I] = item
		}
		break
	}
	for _, w := range widgets {
		if _, ok := base[w.ID]; !ok {
			base[w.ID] = itemFromPlacement(w.ID, w.Placement)
		}
	}

	out := make(LayoutSnapshot, len(Breakpoints))
	for _, bp := range Breakpoints {
		items := filterLive(saved[bp], live)
		present := make(map[string]struct{}, len(items))
		resolved := make([]LayoutItem, 0, len(widgets))
		for _, item := range items {
			present[item.I] = struct{}{}
			resolved = append(resolved, g.clamp(bp, item))
		}
		for _, w := range widgets {
			if _, ok := present[w.ID]; ok {
				continue
			}
			resolved = append(resolved, g.deriveItem(base[w.ID], bp))
		}
		out[bp] = resolved
	}
	return out
}

// normalizeSnapshot drops unknown breakpoints, items for widgets that do not
// exist and duplicate ids, then clamps what remains.
func (g GridConfig) normalizeSnapshot(snapshot LayoutSnapshot, widgets []Widget) LayoutSnapshot {
	live := make(map[string]struct{}, len(widgets))
	for _, w := range widgets {
		live[w.ID] = struct{}{}
	}
	out := make(LayoutSnapshot, len(snapshot))
	for _, bp := range Breakpoints {
		items, ok := snapshot[bp]
		if !ok {
			continue
		}
		cleaned := make([]LayoutItem, 0, len(items))
		for _, item := range filterLive(items, live) {
			cleaned = append(cleaned, g.clamp(bp, item))
		}
		out[bp] = cleaned
	}
	return out
}

func filterLive(items []LayoutItem, live map[string]struct{}) []LayoutItem {
	out := make([]LayoutItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := live[item.I]; !ok {
			continue
		}
		if _, dup := seen[item.I]; dup {
			continue
		}
		seen[item.I] = struct{}{}
		out = append(out, item)
	}
	return out
}

func itemFromPlacement(id string, p Placement) LayoutItem {
	return LayoutItem{I: id, X: p.X, Y: p.Y, W: p.W, H: p.H}
}

func withoutWidget(snapshot LayoutSnapshot, id string) LayoutSnapshot {
	out := make(LayoutSnapshot, len(snapshot))
	for bp, items := range snapshot {
		kept := make([]LayoutItem, 0, len(items))
		for _, item := range items {
			if item.I != id {
				kept = append(kept, item)
			}
		}
		out[bp] = kept
	}
	return out
}
