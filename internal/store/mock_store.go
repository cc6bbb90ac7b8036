package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
)

// MockStore is an in-memory Store with the same MERGE semantics as Neo4jStore.
// Set Err to fail every call, or FailOn to fail writes for one label or
// relationship type.
type MockStore struct {
	mu sync.RWMutex

	nodes     map[model.NodeRef]map[string]any
	nodeOrder []model.NodeRef
	edges     map[model.EdgeRef]map[string]any
	edgeOrder []model.EdgeRef

	Err    error
	FailOn map[string]error

	NodeWrites int
	EdgeWrites int
}

func NewMockStore() *MockStore {
	return &MockStore{
		nodes:  make(map[model.NodeRef]map[string]any),
		edges:  make(map[model.EdgeRef]map[string]any),
		FailOn: make(map[string]error),
	}
}

func (m *MockStore) fail(name string) error {
	if m.Err != nil {
		return errs.Store("mock", m.Err)
	}
	if err, ok := m.FailOn[name]; ok {
		return errs.Store("mock "+name, err)
	}
	return nil
}

func (m *MockStore) EnsureConstraints(ctx context.Context) error {
	return m.fail("constraints")
}

func (m *MockStore) Close(ctx context.Context) error { return nil }

func (m *MockStore) UpsertNodes(ctx context.Context, label, keyField string, rows []NodeRecord) (int, error) {
	if err := m.fail(label); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, errs.Store("mock", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		ref := model.NodeRef{Label: label, Key: r.Key}
		props, ok := m.nodes[ref]
		if !ok {
			props = map[string]any{keyField: r.Key}
			m.nodes[ref] = props
			m.nodeOrder = append(m.nodeOrder, ref)
		}
		for k, v := range r.Properties {
			props[k] = v
		}
		props[keyField] = r.Key
		m.NodeWrites++
	}
	return len(rows), nil
}

func (m *MockStore) UpsertEdges(ctx context.Context, batch EdgeBatch) ([]int, error) {
	if err := m.fail(batch.Type); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Store("mock", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var written []int
	for _, r := range batch.Rows {
		from := model.NodeRef{Label: batch.FromLabel, Key: r.FromKey}
		to := model.NodeRef{Label: batch.ToLabel, Key: r.ToKey}
		if _, ok := m.nodes[from]; !ok {
			continue
		}
		if _, ok := m.nodes[to]; !ok {
			continue
		}
		m.mergeEdge(model.EdgeRef{Type: batch.Type, From: from, To: to}, r.Properties)
		written = append(written, r.Index)
		m.EdgeWrites++
	}
	return written, nil
}

func (m *MockStore) mergeEdge(ref model.EdgeRef, props map[string]any) {
	existing, ok := m.edges[ref]
	if !ok {
		existing = make(map[string]any)
		m.edges[ref] = existing
		m.edgeOrder = append(m.edgeOrder, ref)
	}
	for k, v := range props {
		existing[k] = v
	}
}

func (m *MockStore) GetNode(ctx context.Context, label, keyField, key string) (*model.StoredNode, error) {
	if err := m.fail("read"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref := model.NodeRef{Label: label, Key: key}
	if _, ok := m.nodes[ref]; !ok {
		return nil, &errs.NotFoundError{Kind: "entity", Name: ref.ID()}
	}
	n := m.stored(ref)
	return &n, nil
}

func (m *MockStore) stored(ref model.NodeRef) model.StoredNode {
	props := make(map[string]any, len(m.nodes[ref]))
	for k, v := range m.nodes[ref] {
		props[k] = v
	}
	return model.StoredNode{ElementID: "mock:" + ref.ID(), Labels: []string{ref.Label}, Properties: props}
}

func (m *MockStore) Neighborhood(ctx context.Context, label, keyField, key string, depth int) ([]model.Hop, error) {
	if err := m.fail("read"); err != nil {
		return nil, err
	}
	if depth < 1 || depth > MaxDepth {
		return nil, errs.InvalidArgument("depth %d outside 1..%d", depth, MaxDepth)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := model.NodeRef{Label: label, Key: key}
	if _, ok := m.nodes[start]; !ok {
		return nil, nil
	}

	adj := make(map[model.NodeRef][]model.NodeRef)
	for _, e := range m.edgeOrder {
		adj[e.From] = append(adj[e.From], e.To)
		adj[e.To] = append(adj[e.To], e.From)
	}
	dist := map[model.NodeRef]int{start: 0}
	queue := []model.NodeRef{start}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if dist[u] >= depth {
			continue
		}
		for _, v := range adj[u] {
			if _, seen := dist[v]; !seen {
				dist[v] = dist[u] + 1
				queue = append(queue, v)
			}
		}
	}

	var hops []model.Hop
	for _, e := range m.edgeOrder {
		du, okU := dist[e.From]
		dv, okV := dist[e.To]
		if !okU && !okV {
			continue
		}
		nearest := du
		if !okU || (okV && dv < du) {
			nearest = dv
		}
		if nearest+1 > depth {
			continue
		}
		props := make(map[string]any, len(m.edges[e]))
		for k, v := range m.edges[e] {
			props[k] = v
		}
		hops = append(hops, model.Hop{Type: e.Type, Properties: props, Start: m.stored(e.From), End: m.stored(e.To)})
	}
	return hops, nil
}

func (m *MockStore) CandidateBlocks(ctx context.Context, label, blockField string) ([][]model.StoredNode, error) {
	if err := m.fail("read"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	groups := make(map[string][]model.StoredNode)
	for _, ref := range m.nodeOrder {
		if ref.Label != label {
			continue
		}
		v, ok := m.nodes[ref][blockField]
		if !ok || v == nil {
			continue
		}
		block := asString(v)
		groups[block] = append(groups[block], m.stored(ref))
	}
	keys := make([]string, 0, len(groups))
	for k, g := range groups {
		if len(g) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([][]model.StoredNode, 0, len(keys))
	for _, k := range keys {
		out = append(out, groups[k])
	}
	return out, nil
}

func (m *MockStore) MergeSameAs(ctx context.Context, label, keyField, primary, duplicate string, resolvedAt time.Time) (bool, error) {
	if err := m.fail(model.SameAs); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	from := model.NodeRef{Label: label, Key: primary}
	to := model.NodeRef{Label: label, Key: duplicate}
	if _, ok := m.nodes[from]; !ok {
		return false, nil
	}
	if _, ok := m.nodes[to]; !ok {
		return false, nil
	}
	m.mergeEdge(model.EdgeRef{Type: model.SameAs, From: from, To: to}, map[string]any{
		ResolvedAtField: resolvedAt.UTC().Format(time.RFC3339),
		StatusField:     model.ResolvedStatus,
	})
	return true, nil
}

func (m *MockStore) SameAsNeighbors(ctx context.Context, label, keyField string, keys []string) (map[string][]string, error) {
	if err := m.fail("read"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := make(map[string][]string)
	for _, e := range m.edgeOrder {
		if e.Type != model.SameAs || e.From.Label != label || e.To.Label != label {
			continue
		}
		if want[e.From.Key] {
			out[e.From.Key] = append(out[e.From.Key], e.To.Key)
		}
		if want[e.To.Key] {
			out[e.To.Key] = append(out[e.To.Key], e.From.Key)
		}
	}
	return out, nil
}

func (m *MockStore) CountNodes(ctx context.Context, label string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for ref := range m.nodes {
		if ref.Label == label {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) CountEdges(ctx context.Context, relType string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for ref := range m.edges {
		if ref.Type == relType {
			n++
		}
	}
	return n, nil
}

// Edge returns the properties of one stored edge.
func (m *MockStore) Edge(ref model.EdgeRef) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.edges[ref]
	return p, ok
}
