package resolution

import (
	"context"
	"sort"

	"github.com/agenthands/ontograph/internal/core/errs"
)

// ResolvedCluster returns id and every id connected to it through SAME_AS in
// either direction, sorted. Each breadth-first level costs one store call and
// the visited set stops cycles.
func (r *Resolver) ResolvedCluster(ctx context.Context, id, typ string) ([]string, error) {
	o, err := r.objectType(typ)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errs.InvalidArgument("entity id must not be empty")
	}

	visited := map[string]bool{id: true}
	frontier := []string{id}
	for len(frontier) > 0 {
		neighbors, err := r.store.SameAsNeighbors(ctx, o.Name, o.Key, frontier)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, u := range frontier {
			for _, v := range neighbors[u] {
				if !visited[v] {
					visited[v] = true
					next = append(next, v)
				}
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(visited))
	for v := range visited {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
