package model

// SameAs is the equivalence relationship written by entity resolution.
const SameAs = "SAME_AS"

// ResolvedStatus is the status stored on SAME_AS edges committed by an operator.
const ResolvedStatus = "RESOLVED"

// EdgeRef is the identity of an edge: its type and both endpoint identities.
type EdgeRef struct {
	Type string  `json:"type"`
	From NodeRef `json:"from"`
	To   NodeRef `json:"to"`
}

// ID renders the identity as "<TYPE>:<from id>-><to id>".
func (e EdgeRef) ID() string {
	return e.Type + ":" + e.From.ID() + "->" + e.To.ID()
}

// Hop is one relationship returned by a neighborhood read, with both endpoints.
// Start is the relationship's start node, End its end node.
type Hop struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Start      StoredNode     `json:"start"`
	End        StoredNode     `json:"end"`
}
