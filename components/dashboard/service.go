package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrWidgetNotFound  = errors.New("dashboard: widget not found")
	ErrDuplicateWidget = errors.New("dashboard: widget id already exists")
	errMissingWidgetID = errors.New("dashboard: widget id is required")
)

// Telemetry records dashboard events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

// Options configures the dashboard Service. Every collaborator is an
// interface so transports and tests can swap implementations.
type Options struct {
	Store           SnapshotStore
	ConfigValidator ConfigValidator
	RefreshHook     RefreshHook
	Telemetry       Telemetry
	Logger          *zap.Logger
	Grid            GridConfig
	IDGenerator     func(kind WidgetKind) string
}

// Service owns every viewer's widget collection and layout snapshot. Writes
// to one dashboard are serialized; each write is persisted before it becomes
// visible.
type Service struct {
	opts   Options
	mu     sync.Mutex
	boards map[string]*board
}

type board struct {
	mu      sync.Mutex
	loaded  bool
	widgets []Widget
	layouts LayoutSnapshot
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Store == nil {
		opts.Store = NewInMemorySnapshotStore()
	}
	if opts.ConfigValidator == nil {
		opts.ConfigValidator = NewWidgetValidator(nil)
	}
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.Telemetry == nil {
		opts.Telemetry = noopTelemetry{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = func(kind WidgetKind) string {
			return string(kind) + "_" + uuid.NewString()
		}
	}
	opts.Grid = opts.Grid.normalized()
	return &Service{opts: opts, boards: make(map[string]*board)}
}

// Grid returns the grid bounds in use.
func (s *Service) Grid() GridConfig {
	return s.opts.Grid
}

// acquire locks the viewer's board, loading it on first use.
func (s *Service) acquire(ctx context.Context, viewer ViewerContext) (*board, func(), error) {
	s.mu.Lock()
	b, ok := s.boards[viewer.UserID]
	if !ok {
		b = &board{}
		s.boards[viewer.UserID] = b
	}
	s.mu.Unlock()

	b.mu.Lock()
	if !b.loaded {
		if err := s.load(ctx, viewer, b); err != nil {
			b.mu.Unlock()
			return nil, nil, err
		}
	}
	return b, b.mu.Unlock, nil
}

func (s *Service) load(ctx context.Context, viewer ViewerContext, b *board) error {
	doc, err := s.opts.Store.Load(ctx, viewer)
	if err != nil {
		var corrupt *CorruptSnapshotError
		if !errors.As(err, &corrupt) {
			return err
		}
		s.opts.Logger.Warn("discarding unreadable dashboard data",
			zap.String("user_id", viewer.UserID),
			zap.String("key", corrupt.Key),
			zap.Error(corrupt.Err))
		s.opts.Telemetry.Record(ctx, "dashboard.layout.corrupt", map[string]any{
			"user_id": viewer.UserID,
			"key":     corrupt.Key,
		})
	}
	widgets := make([]Widget, 0, len(doc.Widgets))
	seen := make(map[string]struct{}, len(doc.Widgets))
	for _, w := range doc.Widgets {
		if w.ID == "" {
			continue
		}
		if _, dup := seen[w.ID]; dup {
			continue
		}
		seen[w.ID] = struct{}{}
		w.Placement = s.opts.Grid.ClampPlacement(w.Placement)
		widgets = append(widgets, w)
	}
	b.widgets = widgets
	b.layouts = s.opts.Grid.normalizeSnapshot(doc.Layouts, widgets)
	b.loaded = true
	return nil
}

// commit persists the new state and publishes it on the board.
func (s *Service) commit(ctx context.Context, viewer ViewerContext, b *board, widgets []Widget, layouts LayoutSnapshot) error {
	if err := s.opts.Store.Save(ctx, viewer, Document{Widgets: widgets, Layouts: layouts}); err != nil {
		return err
	}
	b.widgets = widgets
	b.layouts = layouts
	return nil
}

func (s *Service) notify(ctx context.Context, event WidgetEvent) {
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, event); err != nil {
		s.opts.Logger.Warn("widget refresh hook failed", zap.String("reason", event.Reason), zap.Error(err))
	}
}

// AddWidget validates spec and appends the widget. Without an explicit
// placement the widget lands in the first free row.
func (s *Service) AddWidget(ctx context.Context, viewer ViewerContext, spec WidgetSpec) (Widget, error) {
	if err := s.opts.ConfigValidator.ValidateSpec(spec); err != nil {
		return Widget{}, err
	}
	b, release, err := s.acquire(ctx, viewer)
	if err != nil {
		return Widget{}, err
	}
	defer release()

	id := spec.ID
	if id == "" {
		id = s.opts.IDGenerator(spec.Kind)
	}
	if indexOf(b.widgets, id) >= 0 {
		return Widget{}, ErrDuplicateWidget
	}
	var placement Placement
	if spec.Placement != nil {
		placement = s.opts.Grid.ClampPlacement(*spec.Placement)
	} else {
		placement = s.opts.Grid.FindOptimalPosition(b.widgets)
	}
	widget := Widget{
		ID:           id,
		Kind:         spec.Kind,
		Title:        spec.Title,
		ChartVariant: spec.ChartVariant,
		Dataset:      spec.Dataset,
		RenderConfig: spec.RenderConfig,
		Placement:    placement,
	}
	widgets := append(cloneWidgets(b.widgets), cloneWidget(widget))
	if err := s.commit(ctx, viewer, b, widgets, b.layouts); err != nil {
		return Widget{}, err
	}
	out := cloneWidget(widget)
	s.notify(ctx, WidgetEvent{UserID: viewer.UserID, WidgetID: id, Widget: &out, Reason: "add"})
	s.opts.Telemetry.Record(ctx, "dashboard.widget.add", map[string]any{
		"user_id":   viewer.UserID,
		"widget_id": id,
		"kind":      string(spec.Kind),
	})
	return out, nil
}

// RemoveWidget deletes the widget and its entry in every breakpoint in one
// write.
func (s *Service) RemoveWidget(ctx context.Context, viewer ViewerContext, widgetID string) error {
	if widgetID == "" {
		return errMissingWidgetID
	}
	b, release, err := s.acquire(ctx, viewer)
	if err != nil {
		return err
	}
	defer release()

	idx := indexOf(b.widgets, widgetID)
	if idx < 0 {
		return ErrWidgetNotFound
	}
	widgets := cloneWidgets(b.widgets)
	widgets = append(widgets[:idx], widgets[idx+1:]...)
	layouts := withoutWidget(b.layouts, widgetID)
	if err := s.commit(ctx, viewer, b, widgets, layouts); err != nil {
		return err
	}
	s.notify(ctx, WidgetEvent{UserID: viewer.UserID, WidgetID: widgetID, Reason: "remove"})
	s.opts.Telemetry.Record(ctx, "dashboard.widget.remove", map[string]any{
		"user_id":   viewer.UserID,
		"widget_id": widgetID,
	})
	return nil
}

// UpdateLayouts replaces the whole snapshot, then syncs each widget's
// placement from its lg entry. Widgets without an lg entry keep their
// placement.
func (s *Service) UpdateLayouts(ctx context.Context, viewer ViewerContext, snapshot LayoutSnapshot) error {
	b, release, err := s.acquire(ctx, viewer)
	if err != nil {
		return err
	}
	defer release()

	layouts := s.opts.Grid.normalizeSnapshot(snapshot, b.widgets)
	lg := make(map[string]LayoutItem, len(layouts[BreakpointLG]))
	for _, item := range layouts[BreakpointLG] {
		lg[item.I] = item
	}
	widgets := cloneWidgets(b.widgets)
	for i := range widgets {
		if item, ok := lg[widgets[i].ID]; ok {
			widgets[i].Placement = item.Placement()
		}
	}
	if err := s.commit(ctx, viewer, b, widgets, layouts); err != nil {
		return err
	}
	s.notify(ctx, WidgetEvent{UserID: viewer.UserID, Reason: "layout"})
	s.opts.Telemetry.Record(ctx, "dashboard.layout.update", map[string]any{
		"user_id":     viewer.UserID,
		"breakpoints": len(layouts),
	})
	return nil
}

// MoveWidget changes one widget's placement and its lg entry.
func (s *Service) MoveWidget(ctx context.Context, viewer ViewerContext, widgetID string, placement Placement) error {
	if widgetID == "" {
		return errMissingWidgetID
	}
	b, release, err := s.acquire(ctx, viewer)
	if err != nil {
		return err
	}
	defer release()

	idx := indexOf(b.widgets, widgetID)
	if idx < 0 {
		return ErrWidgetNotFound
	}
	placement = s.opts.Grid.ClampPlacement(placement)
	widgets := cloneWidgets(b.widgets)
	widgets[idx].Placement = placement

	layouts := b.layouts.Clone()
	item := itemFromPlacement(widgetID, placement)
	replaced := false
	for i, existing := range layouts[BreakpointLG] {
		if existing.I == widgetID {
			layouts[BreakpointLG][i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		layouts[BreakpointLG] = append(layouts[BreakpointLG], item)
	}
	if err := s.commit(ctx, viewer, b, widgets, layouts); err != nil {
		return err
	}
	out := cloneWidget(widgets[idx])
	s.notify(ctx, WidgetEvent{UserID: viewer.UserID, WidgetID: widgetID, Widget: &out, Reason: "move"})
	return nil
}

// Layout returns the widgets and a complete layout for every breakpoint.
func (s *Service) Layout(ctx context.Context, viewer ViewerContext) (Layout, error) {
	b, release, err := s.acquire(ctx, viewer)
	if err != nil {
		return Layout{}, err
	}
	defer release()

	columns := make(map[Breakpoint]int, len(Breakpoints))
	for _, bp := range Breakpoints {
		columns[bp] = s.opts.Grid.Cols(bp)
	}
	return Layout{
		Widgets: cloneWidgets(b.widgets),
		Layouts: s.opts.Grid.Resolve(b.widgets, b.layouts),
		Columns: columns,
	}, nil
}

// Widget returns a single widget by id.
func (s *Service) Widget(ctx context.Context, viewer ViewerContext, widgetID string) (Widget, error) {
	b, release, err := s.acquire(ctx, viewer)
	if err != nil {
		return Widget{}, err
	}
	defer release()

	idx := indexOf(b.widgets, widgetID)
	if idx < 0 {
		return Widget{}, ErrWidgetNotFound
	}
	return cloneWidget(b.widgets[idx]), nil
}

// Document returns the stored widgets and the saved (unresolved) snapshot.
func (s *Service) Document(ctx context.Context, viewer ViewerContext) (Document, error) {
	b, release, err := s.acquire(ctx, viewer)
	if err != nil {
		return Document{}, err
	}
	defer release()
	return Document{Widgets: cloneWidgets(b.widgets), Layouts: b.layouts.Clone()}, nil
}

// ReplaceDocument swaps the viewer's whole dashboard, e.g. from an export.
func (s *Service) ReplaceDocument(ctx context.Context, viewer ViewerContext, doc Document) error {
	b, release, err := s.acquire(ctx, viewer)
	if err != nil {
		return err
	}
	defer release()

	widgets := make([]Widget, 0, len(doc.Widgets))
	for _, w := range doc.Widgets {
		spec := WidgetSpec{
			ID:           w.ID,
			Kind:         w.Kind,
			Title:        w.Title,
			ChartVariant: w.ChartVariant,
			Dataset:      w.Dataset,
			RenderConfig: w.RenderConfig,
			Placement:    &w.Placement,
		}
		if err := s.opts.ConfigValidator.ValidateSpec(spec); err != nil {
			return err
		}
		if w.ID == "" {
			return errMissingWidgetID
		}
		if indexOf(widgets, w.ID) >= 0 {
			return ErrDuplicateWidget
		}
		w.Placement = s.opts.Grid.ClampPlacement(w.Placement)
		widgets = append(widgets, cloneWidget(w))
	}
	layouts := s.opts.Grid.normalizeSnapshot(doc.Layouts, widgets)
	if err := s.commit(ctx, viewer, b, widgets, layouts); err != nil {
		return err
	}
	s.notify(ctx, WidgetEvent{UserID: viewer.UserID, Reason: "replace"})
	return nil
}

// Reset clears the viewer's dashboard.
func (s *Service) Reset(ctx context.Context, viewer ViewerContext) error {
	return s.ReplaceDocument(ctx, viewer, Document{})
}

func indexOf(widgets []Widget, id string) int {
	for i, w := range widgets {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func cloneWidgets(widgets []Widget) []Widget {
	out := make([]Widget, len(widgets))
	for i, w := range widgets {
		out[i] = cloneWidget(w)
	}
	return out
}

func cloneWidget(w Widget) Widget {
	if w.Dataset != nil {
		dataset := make([]map[string]any, len(w.Dataset))
		for i, row := range w.Dataset {
			copied := make(map[string]any, len(row))
			for k, v := range row {
				copied[k] = v
			}
			dataset[i] = copied
		}
		w.Dataset = dataset
	}
	if w.RenderConfig.Colors != nil {
		w.RenderConfig.Colors = append([]string(nil), w.RenderConfig.Colors...)
	}
	return w
}
