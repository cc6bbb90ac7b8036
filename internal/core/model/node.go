package model

import (
	"fmt"
	"time"
)

// NodeRef is the durable identity of a node: its type label and key value.
type NodeRef struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

// ID renders the identity as "<Label>:<key>".
func (r NodeRef) ID() string {
	return r.Label + ":" + r.Key
}

func (r NodeRef) String() string { return r.ID() }

// StoredNode is a node as read back from the graph store.
type StoredNode struct {
	ElementID  string         `json:"element_id,omitempty"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// Prop returns the property as a string, or "" when absent.
func (n StoredNode) Prop(field string) string {
	v, ok := n.Properties[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Provenance records where a node's current property values came from.
type Provenance struct {
	Source      string `json:"source"`
	ContentHash string `json:"content_hash"`
	IngestedAt  string `json:"ingested_at"`
}

// Stamp returns a provenance record for one source file ingested at t.
func Stamp(source, hash string, t time.Time) Provenance {
	return Provenance{
		Source:      source,
		ContentHash: hash,
		IngestedAt:  t.UTC().Format(time.RFC3339),
	}
}
