package community

import (
	"fmt"
	"sort"

	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
)

// Detection methods accepted by NewDetector.
const (
	MethodLPA        = "lpa"
	MethodComponents = "components"
)

type CommunityDetector interface {
	Detect(nodes []model.GraphNode, edges []model.GraphEdge) ([][]model.GraphNode, error)
}

// ComponentDetector groups nodes by connected component.
type ComponentDetector struct{}

func NewDefaultDetector() CommunityDetector {
	return NewLabelPropagationDetector()
}

// NewDetector returns the detector for method. An empty method means the default.
func NewDetector(method string) (CommunityDetector, error) {
	switch method {
	case "", MethodLPA:
		return NewDefaultDetector(), nil
	case MethodComponents:
		return &ComponentDetector{}, nil
	default:
		return nil, errs.InvalidArgument("unknown community method %q, want %q or %q", method, MethodLPA, MethodComponents)
	}
}

func (d *ComponentDetector) Detect(nodes []model.GraphNode, edges []model.GraphEdge) ([][]model.GraphNode, error) {
	nodeMap := make(map[string]model.GraphNode)
	adj := make(map[string][]string)

	for _, n := range nodes {
		nodeMap[n.ID] = n
	}
	for _, e := range edges {
		// Edges with an endpoint outside the node set are ignored.
		if _, ok := nodeMap[e.Source]; !ok {
			continue
		}
		if _, ok := nodeMap[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}

	visited := make(map[string]bool)
	var communities [][]model.GraphNode
	for _, n := range nodes {
		if visited[n.ID] {
			continue
		}
		var ids []string
		d.dfs(n.ID, adj, visited, &ids)
		// Singletons are not communities.
		if len(ids) < 2 {
			continue
		}
		community := make([]model.GraphNode, 0, len(ids))
		for _, id := range ids {
			community = append(community, nodeMap[id])
		}
		communities = append(communities, community)
	}
	return communities, nil
}

func (d *ComponentDetector) dfs(u string, adj map[string][]string, visited map[string]bool, component *[]string) {
	visited[u] = true
	*component = append(*component, u)
	for _, v := range adj[u] {
		if !visited[v] {
			d.dfs(v, adj, visited, component)
		}
	}
}

// Annotate runs detector over g and writes a community name onto every node
// that belongs to one. Names are stable for the same graph: communities are
// ordered by their smallest member id.
func Annotate(g *model.GraphData, detector CommunityDetector) error {
	if g == nil || len(g.Nodes) == 0 {
		return nil
	}
	communities, err := detector.Detect(g.Nodes, g.Edges)
	if err != nil {
		return err
	}

	type group struct {
		min string
		ids []string
	}
	groups := make([]group, 0, len(communities))
	for _, c := range communities {
		gr := group{}
		for _, n := range c {
			gr.ids = append(gr.ids, n.ID)
			if gr.min == "" || n.ID < gr.min {
				gr.min = n.ID
			}
		}
		groups = append(groups, gr)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].min < groups[j].min })

	assigned := make(map[string]string)
	for i, gr := range groups {
		name := fmt.Sprintf("community-%d", i+1)
		for _, id := range gr.ids {
			assigned[id] = name
		}
	}
	for i := range g.Nodes {
		g.Nodes[i].Community = assigned[g.Nodes[i].ID]
	}
	return nil
}
