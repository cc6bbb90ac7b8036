package model

// GraphNode is a node rendered for visualization.
type GraphNode struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
	Community  string         `json:"community,omitempty"`
}

// GraphEdge is an edge rendered for visualization. Source and Target are GraphNode ids.
type GraphEdge struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// DisplayFields maps a type name to the property shown as a node's label.
type DisplayFields map[string]string

// DefaultDisplayFields is the field-preference table used when none is configured.
func DefaultDisplayFields() DisplayFields {
	return DisplayFields{
		"Person":       "full_name",
		"Phone":        "msisdn",
		"Organisation": "org_name",
		"Location":     "name",
		"Document":     "title",
	}
}

// Label picks the display label for a node of typeName, falling back to the
// identity value when the type is unknown or the field is empty.
func (d DisplayFields) Label(typeName string, n StoredNode, identity string) string {
	if field, ok := d[typeName]; ok {
		if v := n.Prop(field); v != "" {
			return v
		}
	}
	return identity
}
