package funnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dashboardai/dashboardai/pkg/kvstore"
)

// DefaultKey is the storage key of the flow; viewers get `<key>:<user>`.
const DefaultKey = "dashboardai.funnel"

// Document is the persisted form of a graph.
type Document struct {
	Graph
	SavedAt time.Time `json:"saved_at"`
}

// Options configures a Service.
type Options struct {
	Store  kvstore.Store
	Key    string
	Logger *zap.Logger
	Now    func() time.Time
	NewID  func() string
}

// Service loads, edits and saves one flow per viewer. Every edit is saved
// before it becomes visible.
type Service struct {
	opts Options
	mu   sync.Mutex
}

// NewService builds a Service over store.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("funnel: store is required")
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{opts: opts}, nil
}

// Load returns the viewer's flow, empty when nothing is stored. A corrupt
// document is discarded with a warning.
func (s *Service) Load(ctx context.Context, viewer string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, viewer)
}

// Save replaces the viewer's flow after dropping dangling edges.
func (s *Service) Save(ctx context.Context, viewer string, g Graph) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := g.Clone()
	if dropped := next.normalize(); dropped > 0 {
		s.opts.Logger.Warn("dropped invalid funnel edges", zap.String("viewer", viewer), zap.Int("edges", dropped))
	}
	return s.save(ctx, viewer, next)
}

// AddNode adds a node from a template.
func (s *Service) AddNode(ctx context.Context, viewer string, in NodeInput) (Node, error) {
	var node Node
	err := s.update(ctx, viewer, func(g *Graph) error {
		var err error
		node, err = g.AddNode(in, s.opts.NewID())
		return err
	})
	return node, err
}

// Connect links source to target.
func (s *Service) Connect(ctx context.Context, viewer, source, target string) (Edge, error) {
	var edge Edge
	err := s.update(ctx, viewer, func(g *Graph) error {
		var err error
		edge, err = g.Connect(source, target)
		return err
	})
	return edge, err
}

// RemoveNode removes a node with its edges.
func (s *Service) RemoveNode(ctx context.Context, viewer, id string) error {
	return s.update(ctx, viewer, func(g *Graph) error {
		return g.RemoveNode(id)
	})
}

func (s *Service) update(ctx context.Context, viewer string, mutate func(*Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx, viewer)
	if err != nil {
		return err
	}
	next := doc.Graph.Clone()
	if err := mutate(&next); err != nil {
		return err
	}
	_, err = s.save(ctx, viewer, next)
	return err
}

func (s *Service) load(ctx context.Context, viewer string) (Document, error) {
	raw, err := s.opts.Store.Get(ctx, s.key(viewer))
	if errors.Is(err, kvstore.ErrNotFound) {
		return Document{Graph: Graph{Nodes: []Node{}, Edges: []Edge{}}}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("funnel: load: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.opts.Logger.Warn("discarding corrupt funnel document", zap.String("viewer", viewer), zap.Error(err))
		return Document{Graph: Graph{Nodes: []Node{}, Edges: []Edge{}}}, nil
	}
	doc.Graph.normalize()
	return doc, nil
}

func (s *Service) save(ctx context.Context, viewer string, g Graph) (Document, error) {
	doc := Document{Graph: g, SavedAt: s.opts.Now().UTC()}
	raw, err := json.Marshal(doc)
	if err != nil {
		return Document{}, fmt.Errorf("funnel: encode: %w", err)
	}
	if err := s.opts.Store.Put(ctx, kvstore.Entry{Key: s.key(viewer), Value: raw}); err != nil {
		return Document{}, fmt.Errorf("funnel: save: %w", err)
	}
	return doc, nil
}

func (s *Service) key(viewer string) string {
	if viewer == "" {
		return s.opts.Key
	}
	return s.opts.Key + ":" + viewer
}
