package resolution

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/ontology"
)

// DefaultConfidence is reported for suggestions when a heuristic sets none.
const DefaultConfidence = 0.9

// Heuristic decides whether two entities of one type look like the same
// real-world thing. Candidates are first grouped by BlockField in the store, so
// Match only sees pairs that already share that field's value.
type Heuristic interface {
	Name() string
	Type() string
	BlockField() string
	// Fields lists every property Match reads, BlockField included.
	Fields() []string
	Match(a, b model.StoredNode) (reason string, ok bool)
	Confidence() float64
}

// DOBNameToken pairs people with the same date of birth whose first name token
// appears among the other's name tokens. It favours precision: "Ayaan Khan" and
// "Ayaan Rao" match, "John Smith" and "Jon Smith" do not.
type DOBNameToken struct {
	EntityType string
	NameField  string
	DOBField   string
	Conf       float64
}

const KindDOBNameToken = "dob_name_token"

func NewDOBNameToken() *DOBNameToken {
	return &DOBNameToken{EntityType: "Person", NameField: "full_name", DOBField: "dob", Conf: DefaultConfidence}
}

func (h *DOBNameToken) Name() string       { return KindDOBNameToken }
func (h *DOBNameToken) Type() string       { return h.EntityType }
func (h *DOBNameToken) BlockField() string { return h.DOBField }
func (h *DOBNameToken) Fields() []string   { return []string{h.DOBField, h.NameField} }

func (h *DOBNameToken) Confidence() float64 {
	if h.Conf <= 0 {
		return DefaultConfidence
	}
	return h.Conf
}

func (h *DOBNameToken) Match(a, b model.StoredNode) (string, bool) {
	if a.Prop(h.DOBField) == "" || a.Prop(h.DOBField) != b.Prop(h.DOBField) {
		return "", false
	}
	ta := tokens(a.Prop(h.NameField))
	tb := tokens(b.Prop(h.NameField))
	if len(ta) == 0 || len(tb) == 0 {
		return "", false
	}
	if contains(tb, ta[0]) || contains(ta, tb[0]) {
		return "Same DOB and similar Name", true
	}
	return "", false
}

func tokens(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

// HeuristicSpec configures one heuristic instance.
type HeuristicSpec struct {
	Type       string
	Kind       string
	NameField  string
	BlockField string
	Confidence float64
}

// BuildHeuristic turns a HeuristicSpec into a heuristic. Unset fields keep the kind's defaults.
func BuildHeuristic(spec HeuristicSpec) (Heuristic, error) {
	switch spec.Kind {
	case KindDOBNameToken, "":
		h := NewDOBNameToken()
		if spec.Type != "" {
			h.EntityType = spec.Type
		}
		if spec.NameField != "" {
			h.NameField = spec.NameField
		}
		if spec.BlockField != "" {
			h.DOBField = spec.BlockField
		}
		if spec.Confidence > 0 {
			h.Conf = spec.Confidence
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unknown heuristic kind %q", spec.Kind)
	}
}

// CheckHeuristic reports an invalid-argument error when h targets a type the
// schema does not declare or reads a field that type does not have.
func CheckHeuristic(schema *ontology.Schema, h Heuristic) error {
	o, ok := schema.Objects[h.Type()]
	if !ok {
		return errs.InvalidArgument("heuristic %s targets undeclared type %q", h.Name(), h.Type())
	}
	for _, f := range h.Fields() {
		if !o.HasField(f) {
			return errs.InvalidArgument("heuristic %s reads %q, which %s does not declare", h.Name(), f, h.Type())
		}
	}
	return nil
}

// Registry holds the heuristics registered per entity type.
type Registry struct {
	byType map[string][]Heuristic
}

func NewRegistry(hs ...Heuristic) *Registry {
	r := &Registry{byType: make(map[string][]Heuristic)}
	for _, h := range hs {
		r.Register(h)
	}
	return r
}

// DefaultRegistry registers the Person date-of-birth and name heuristic.
func DefaultRegistry() *Registry {
	return NewRegistry(NewDOBNameToken())
}

func (r *Registry) Register(h Heuristic) {
	r.byType[h.Type()] = append(r.byType[h.Type()], h)
}

func (r *Registry) For(typ string) []Heuristic {
	return r.byType[typ]
}

// Types returns the entity types with at least one heuristic, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
