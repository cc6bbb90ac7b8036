package store

import (
	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/ontology"
)

// Fields that resolution writes on SAME_AS edges.
const (
	ResolvedAtField = "resolved_at"
	StatusField     = "status"
)

// Builder turns schema names into quoted Cypher tokens. Names outside the
// loaded schema are rejected even when they look like identifiers.
type Builder struct {
	labels   map[string]bool
	relTypes map[string]bool
	fields   map[string]bool
}

func NewBuilder(schema *ontology.Schema) *Builder {
	b := &Builder{
		labels:   make(map[string]bool),
		relTypes: map[string]bool{model.SameAs: true},
		fields: map[string]bool{
			ontology.SourceField:     true,
			ontology.HashField:       true,
			ontology.IngestedAtField: true,
			ResolvedAtField:          true,
			StatusField:              true,
		},
	}
	for _, l := range schema.Labels() {
		b.labels[l] = true
	}
	for _, r := range schema.RelationshipNames() {
		b.relTypes[r] = true
	}
	for _, f := range schema.Fields() {
		b.fields[f] = true
	}
	return b
}

func (b *Builder) Label(name string) (string, error) {
	return quote("label", name, b.labels)
}

func (b *Builder) RelType(name string) (string, error) {
	return quote("relationship type", name, b.relTypes)
}

func (b *Builder) Field(name string) (string, error) {
	return quote("field", name, b.fields)
}

// Depth validates a variable-length bound before it is printed into a pattern.
func (b *Builder) Depth(d int) (int, error) {
	if d < 1 || d > MaxDepth {
		return 0, errs.InvalidArgument("depth %d outside 1..%d", d, MaxDepth)
	}
	return d, nil
}

// MaxDepth bounds neighborhood expansion.
const MaxDepth = 3

func quote(kind, name string, allowed map[string]bool) (string, error) {
	if !ontology.IsIdentifier(name) {
		return "", errs.InvalidArgument("%s %q is not an identifier", kind, name)
	}
	if !allowed[name] {
		return "", errs.InvalidArgument("%s %q is not declared in the ontology", kind, name)
	}
	return "`" + name + "`", nil
}
