package community

import (
	"sort"

	"github.com/agenthands/ontograph/internal/core/model"
)

// LabelPropagationDetector finds densely connected groups by label propagation.
// Parallel edges between two nodes count as extra weight, so two phones that
// call each other often pull together harder than a single shared document.
type LabelPropagationDetector struct {
	MaxIterations int
}

func NewLabelPropagationDetector() *LabelPropagationDetector {
	return &LabelPropagationDetector{MaxIterations: 20}
}

func (d *LabelPropagationDetector) Detect(nodes []model.GraphNode, edges []model.GraphEdge) ([][]model.GraphNode, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	byID := make(map[string]model.GraphNode, len(nodes))
	weights := make(map[string]map[string]int, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		weights[n.ID] = make(map[string]int)
	}
	for _, e := range edges {
		if e.Source == e.Target {
			continue
		}
		if _, ok := byID[e.Source]; !ok {
			continue
		}
		if _, ok := byID[e.Target]; !ok {
			continue
		}
		weights[e.Source][e.Target]++
		weights[e.Target][e.Source]++
	}

	// Visit in id order so the result does not depend on map iteration.
	order := make([]string, 0, len(byID))
	for id := range byID {
		order = append(order, id)
	}
	sort.Strings(order)

	labels := make(map[string]string, len(order))
	for _, id := range order {
		labels[id] = id
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changed := false
		for _, u := range order {
			if len(weights[u]) == 0 {
				continue
			}
			score := make(map[string]int)
			for v, w := range weights[u] {
				score[labels[v]] += w
			}
			best := pickLabel(score, labels[u])
			if best != labels[u] {
				labels[u] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	members := make(map[string][]model.GraphNode)
	for _, id := range order {
		members[labels[id]] = append(members[labels[id]], byID[id])
	}
	keys := make([]string, 0, len(members))
	for label, group := range members {
		if len(group) >= 2 {
			keys = append(keys, label)
		}
	}
	sort.Strings(keys)

	communities := make([][]model.GraphNode, 0, len(keys))
	for _, k := range keys {
		communities = append(communities, members[k])
	}
	return communities, nil
}

// pickLabel returns the highest scoring label. The current label wins a tie,
// otherwise the lexicographically largest does.
func pickLabel(score map[string]int, current string) string {
	max := 0
	for _, s := range score {
		if s > max {
			max = s
		}
	}
	if score[current] == max {
		return current
	}
	best := ""
	for label, s := range score {
		if s == max && label > best {
			best = label
		}
	}
	return best
}
