// Package traverse expands an entity's neighborhood into a renderable graph.
package traverse

import (
	"context"
	"errors"

	"github.com/agenthands/ontograph/internal/core/community"
	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/ontology"
	"github.com/agenthands/ontograph/internal/store"
)

// MentionRelationship links a document to the entities it mentions.
const MentionRelationship = "DOC_MENTIONS_ENTITY"

const (
	MinDepth = 1
	MaxDepth = store.MaxDepth
)

type Expander struct {
	schema  *ontology.Schema
	store   store.Store
	display model.DisplayFields
}

func NewExpander(schema *ontology.Schema, st store.Store, display model.DisplayFields) *Expander {
	if len(display) == 0 {
		display = model.DefaultDisplayFields()
	}
	return &Expander{
		schema:  schema,
		store:   st,
		display: display,
	}
}

// Expand returns the start entity and every node and edge within depth
// undirected hops. Depth must be in 1..3; it is never clamped.
func (e *Expander) Expand(ctx context.Context, typ, key string, depth int) (*model.GraphData, error) {
	if depth < MinDepth || depth > MaxDepth {
		return nil, errs.InvalidArgument("depth must be between %d and %d, got %d", MinDepth, MaxDepth, depth)
	}
	o, err := e.objectType(typ, key)
	if err != nil {
		return nil, err
	}

	start, err := e.store.GetNode(ctx, o.Name, o.Key, key)
	if err != nil {
		return nil, err
	}
	hops, err := e.store.Neighborhood(ctx, o.Name, o.Key, key, depth)
	if err != nil {
		return nil, err
	}

	g := &model.GraphData{Nodes: []model.GraphNode{}, Edges: []model.GraphEdge{}}
	seenNodes := make(map[string]bool)
	seenEdges := make(map[string]bool)
	addNode := func(n model.GraphNode) {
		if !seenNodes[n.ID] {
			seenNodes[n.ID] = true
			g.Nodes = append(g.Nodes, n)
		}
	}

	addNode(e.render(*start))
	for _, h := range hops {
		s := e.render(h.Start)
		t := e.render(h.End)
		addNode(s)
		addNode(t)

		id := h.Type + ":" + s.ID + "->" + t.ID
		if seenEdges[id] {
			continue
		}
		seenEdges[id] = true
		props := h.Properties
		if props == nil {
			props = map[string]any{}
		}
		g.Edges = append(g.Edges, model.GraphEdge{ID: id, Source: s.ID, Target: t.ID, Type: h.Type, Properties: props})
	}
	return g, nil
}

// ExpandWithCommunities is Expand with a community name set on clustered nodes.
// method is community.MethodLPA (the default when empty) or community.MethodComponents.
func (e *Expander) ExpandWithCommunities(ctx context.Context, typ, key string, depth int, method string) (*model.GraphData, error) {
	detector, err := community.NewDetector(method)
	if err != nil {
		return nil, err
	}
	g, err := e.Expand(ctx, typ, key, depth)
	if err != nil {
		return nil, err
	}
	if err := community.Annotate(g, detector); err != nil {
		return nil, err
	}
	return g, nil
}

// Entity returns one rendered entity with its full property map.
func (e *Expander) Entity(ctx context.Context, typ, key string) (*model.GraphNode, error) {
	o, err := e.objectType(typ, key)
	if err != nil {
		return nil, err
	}
	n, err := e.store.GetNode(ctx, o.Name, o.Key, key)
	if err != nil {
		return nil, err
	}
	rendered := e.render(*n)
	return &rendered, nil
}

// Provenance reports the file, content hash and time an entity was last ingested from.
func (e *Expander) Provenance(ctx context.Context, typ, key string) (*model.Provenance, error) {
	o, err := e.objectType(typ, key)
	if err != nil {
		return nil, err
	}
	n, err := e.store.GetNode(ctx, o.Name, o.Key, key)
	if err != nil {
		return nil, err
	}
	return &model.Provenance{
		Source:      n.Prop(ontology.SourceField),
		ContentHash: n.Prop(ontology.HashField),
		IngestedAt:  n.Prop(ontology.IngestedAtField),
	}, nil
}

type Mention struct {
	Document   model.GraphNode `json:"document"`
	Properties map[string]any  `json:"properties"`
}

// Mentions lists the documents that mention an entity.
func (e *Expander) Mentions(ctx context.Context, typ, key string) ([]Mention, error) {
	o, err := e.objectType(typ, key)
	if err != nil {
		return nil, err
	}
	if _, err := e.schema.RelationshipType(MentionRelationship); err != nil {
		return []Mention{}, nil
	}
	if _, err := e.store.GetNode(ctx, o.Name, o.Key, key); err != nil {
		return nil, err
	}
	hops, err := e.store.Neighborhood(ctx, o.Name, o.Key, key, 1)
	if err != nil {
		return nil, err
	}

	self := model.NodeRef{Label: o.Name, Key: key}.ID()
	out := []Mention{}
	for _, h := range hops {
		if h.Type != MentionRelationship {
			continue
		}
		doc := e.render(h.Start)
		if doc.ID == self {
			continue
		}
		out = append(out, Mention{Document: doc, Properties: h.Properties})
	}
	return out, nil
}

func (e *Expander) objectType(typ, key string) (*ontology.ObjectType, error) {
	o, err := e.schema.ObjectType(typ)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.InvalidArgument("unknown entity type %q", typ)
		}
		return nil, err
	}
	if key == "" {
		return nil, errs.InvalidArgument("entity id must not be empty")
	}
	return o, nil
}

// render turns a stored node into a GraphNode identified by "<Label>:<key>".
// Nodes without a declared label fall back to their element id.
func (e *Expander) render(n model.StoredNode) model.GraphNode {
	typ := ""
	id := ""
	for _, l := range n.Labels {
		if o, ok := e.schema.Objects[l]; ok {
			if k := n.Prop(o.Key); k != "" {
				typ = l
				id = model.NodeRef{Label: l, Key: k}.ID()
				break
			}
		}
	}
	if id == "" {
		if len(n.Labels) > 0 {
			typ = n.Labels[0]
		} else {
			typ = "Unknown"
		}
		id = typ + ":" + n.ElementID
	}

	identity := id[len(typ)+1:]
	props := n.Properties
	if props == nil {
		props = map[string]any{}
	}
	return model.GraphNode{
		ID:         id,
		Type:       typ,
		Label:      e.display.Label(typ, n, identity),
		Properties: props,
	}
}
