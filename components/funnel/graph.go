// Package funnel models the funnel-flow diagram: pipeline stage nodes
// grouped by funnel category and the edges between them.
package funnel

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the funnel stage a node belongs to.
type Category string

const (
	Top    Category = "TOPO"
	Middle Category = "MEIO"
	Bottom Category = "FUNDO"
)

func (c Category) valid() bool {
	return c == Top || c == Middle || c == Bottom
}

var (
	ErrUnknownTemplate = errors.New("funnel: unknown node template")
	ErrNodeNotFound    = errors.New("funnel: node not found")
	ErrSelfLoop        = errors.New("funnel: a node cannot connect to itself")
	ErrDuplicateEdge   = errors.New("funnel: nodes are already connected")
	ErrInvalidNode     = errors.New("funnel: invalid node")
)

// Template describes a node type that can be added to the flow.
type Template struct {
	Type        string   `json:"type"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}

// TemplateCustom accepts a caller-provided label and category.
const TemplateCustom = "custom"

var templates = []Template{
	{Type: "facebookAds", Label: "Facebook Ads", Description: "Extração de dados de campanhas do Facebook", Category: Top},
	{Type: "googleAds", Label: "Google Ads", Description: "Extração de dados de campanhas do Google", Category: Top},
	{Type: "vturb", Label: "VTurb", Description: "Dados da plataforma VTurb", Category: Middle},
	{Type: "utmify", Label: "UTMify", Description: "Dados da plataforma UTMify", Category: Middle},
	{Type: "payt", Label: "Payt", Description: "Dados do checkout Payt", Category: Bottom},
	{Type: TemplateCustom, Label: "Personalizado", Description: "Etapa personalizada", Category: Middle},
}

// Templates returns the available node templates.
func Templates() []Template {
	return append([]Template(nil), templates...)
}

// LookupTemplate finds a template by type.
func LookupTemplate(kind string) (Template, bool) {
	for _, t := range templates {
		if t.Type == kind {
			return t, true
		}
	}
	return Template{}, false
}

// Position is the node's canvas position.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a stage of the flow.
type Node struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Category    Category       `json:"category"`
	Position    Position       `json:"position"`
	Config      map[string]any `json:"config,omitempty"`
}

// Edge connects two nodes.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// NodeInput adds a node from a template. Label and Category override the
// template only for custom nodes.
type NodeInput struct {
	Template string         `json:"template"`
	Position Position       `json:"position"`
	Label    string         `json:"label,omitempty"`
	Category Category       `json:"category,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
}

// Graph is the whole flow.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone returns a deep copy of g.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		if n.Config != nil {
			cfg := make(map[string]any, len(n.Config))
			for k, v := range n.Config {
				cfg[k] = v
			}
			n.Config = cfg
		}
		out.Nodes[i] = n
	}
	copy(out.Edges, g.Edges)
	return out
}

// AddNode appends a node built from in with id `<type>-<suffix>`.
func (g *Graph) AddNode(in NodeInput, suffix string) (Node, error) {
	tmpl, ok := LookupTemplate(in.Template)
	if !ok {
		return Node{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, in.Template)
	}
	node := Node{
		ID:          tmpl.Type + "-" + suffix,
		Type:        tmpl.Type,
		Label:       tmpl.Label,
		Description: tmpl.Description,
		Category:    tmpl.Category,
		Position:    in.Position,
		Config:      in.Config,
	}
	if tmpl.Type == TemplateCustom {
		if label := strings.TrimSpace(in.Label); label != "" {
			node.Label = label
		}
		if in.Category != "" {
			if !in.Category.valid() {
				return Node{}, fmt.Errorf("%w: category %q", ErrInvalidNode, in.Category)
			}
			node.Category = in.Category
		}
	}
	if g.index(node.ID) >= 0 {
		return Node{}, fmt.Errorf("%w: id %q already exists", ErrInvalidNode, node.ID)
	}
	g.Nodes = append(g.Nodes, node)
	return node, nil
}

// Connect adds an edge from source to target. Both nodes must exist, and
// self loops and repeated edges are rejected.
func (g *Graph) Connect(source, target string) (Edge, error) {
	if source == target {
		return Edge{}, ErrSelfLoop
	}
	for _, id := range []string{source, target} {
		if g.index(id) < 0 {
			return Edge{}, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
		}
	}
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target {
			return Edge{}, ErrDuplicateEdge
		}
	}
	edge := Edge{ID: "edge-" + source + "-" + target, Source: source, Target: target}
	g.Edges = append(g.Edges, edge)
	return edge, nil
}

// RemoveNode deletes the node and every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	idx := g.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	g.Nodes = append(g.Nodes[:idx], g.Nodes[idx+1:]...)
	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	g.Edges = kept
	return nil
}

func (g *Graph) index(id string) int {
	for i, n := range g.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// normalize drops edges whose endpoints are missing, self loops and
// duplicates from a loaded graph.
func (g *Graph) normalize() int {
	if g.Nodes == nil {
		g.Nodes = []Node{}
	}
	seen := make(map[[2]string]struct{}, len(g.Edges))
	kept := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		key := [2]string{e.Source, e.Target}
		if _, dup := seen[key]; dup || e.Source == e.Target || g.index(e.Source) < 0 || g.index(e.Target) < 0 {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, e)
	}
	dropped := len(g.Edges) - len(kept)
	g.Edges = kept
	return dropped
}
