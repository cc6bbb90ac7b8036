package traverse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ontograph/internal/core/community"
	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/ontology"
	"github.com/agenthands/ontograph/internal/store"
)

const testOntology = `
version: 1
objects:
  Person: {key: person_id, properties: [full_name, dob]}
  Phone: {key: phone_id, properties: [msisdn]}
  Document: {key: doc_id, properties: [title]}
relationships:
  OWNS_PHONE: {from: Person, to: Phone, dataset: person_phone.csv}
  CALL: {from: Phone, to: Phone, dataset: calls.csv}
  DOC_MENTIONS_ENTITY: {from: Document, to: "*", dataset: doc_mentions.csv}
`

// seed builds: P1 -OWNS_PHONE-> PH1 -CALL-> PH2 <-OWNS_PHONE- P2 -OWNS_PHONE-> PH3, D1 mentions P1.
func seed(t *testing.T) (*ontology.Schema, *store.MockStore) {
	t.Helper()
	s, err := ontology.Parse([]byte(testOntology))
	require.NoError(t, err)

	ctx := context.Background()
	st := store.NewMockStore()
	_, err = st.UpsertNodes(ctx, "Person", "person_id", []store.NodeRecord{
		{Key: "P1", Properties: map[string]any{"full_name": "John Smith", "_source": "persons.csv", "_hash": "abc", "_ingested_at": "2024-01-01T00:00:00Z"}},
		{Key: "P2", Properties: map[string]any{}},
	})
	require.NoError(t, err)
	_, err = st.UpsertNodes(ctx, "Phone", "phone_id", []store.NodeRecord{
		{Key: "PH1", Properties: map[string]any{"msisdn": "+441"}}, {Key: "PH2"}, {Key: "PH3"},
	})
	require.NoError(t, err)
	_, err = st.UpsertNodes(ctx, "Document", "doc_id", []store.NodeRecord{{Key: "D1", Properties: map[string]any{"title": "Report"}}})
	require.NoError(t, err)

	edges := func(typ, fl, fk, tl, tk string, pairs ...[2]string) {
		var rows []store.EdgeRecord
		for i, p := range pairs {
			rows = append(rows, store.EdgeRecord{Index: i, FromKey: p[0], ToKey: p[1], Properties: map[string]any{"mention": "J.S."}})
		}
		_, err := st.UpsertEdges(ctx, store.EdgeBatch{Type: typ, FromLabel: fl, FromKeyField: fk, ToLabel: tl, ToKeyField: tk, Rows: rows})
		require.NoError(t, err)
	}
	edges("OWNS_PHONE", "Person", "person_id", "Phone", "phone_id", [2]string{"P1", "PH1"}, [2]string{"P2", "PH2"}, [2]string{"P2", "PH3"})
	edges("CALL", "Phone", "phone_id", "Phone", "phone_id", [2]string{"PH1", "PH2"})
	edges("DOC_MENTIONS_ENTITY", "Document", "doc_id", "Person", "person_id", [2]string{"D1", "P1"})
	return s, st
}

func ids(g *model.GraphData) []string {
	var out []string
	for _, n := range g.Nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestExpand_DepthBound(t *testing.T) {
	s, st := seed(t)
	e := NewExpander(s, st, nil)
	ctx := context.Background()

	cases := map[int][]string{
		1: {"Person:P1", "Phone:PH1", "Document:D1"},
		2: {"Person:P1", "Phone:PH1", "Phone:PH2", "Document:D1"},
		3: {"Person:P1", "Phone:PH1", "Phone:PH2", "Document:D1", "Person:P2"},
	}
	for depth, want := range cases {
		g, err := e.Expand(ctx, "Person", "P1", depth)
		require.NoError(t, err)
		assert.ElementsMatch(t, want, ids(g), "depth %d", depth)
		assert.Equal(t, "Person:P1", g.Nodes[0].ID)
		for _, edge := range g.Edges {
			assert.Contains(t, ids(g), edge.Source)
			assert.Contains(t, ids(g), edge.Target)
		}
	}
}

func TestExpand_RendersLabelsAndEdges(t *testing.T) {
	s, st := seed(t)
	g, err := NewExpander(s, st, nil).Expand(context.Background(), "Person", "P1", 1)
	require.NoError(t, err)

	byID := map[string]model.GraphNode{}
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	assert.Equal(t, "John Smith", byID["Person:P1"].Label)
	assert.Equal(t, "+441", byID["Phone:PH1"].Label)
	assert.Equal(t, "Report", byID["Document:D1"].Label)
	assert.Equal(t, "John Smith", byID["Person:P1"].Properties["full_name"])

	edgeIDs := map[string]bool{}
	for _, e := range g.Edges {
		edgeIDs[e.ID] = true
	}
	assert.True(t, edgeIDs["OWNS_PHONE:Person:P1->Phone:PH1"])
	assert.True(t, edgeIDs["DOC_MENTIONS_ENTITY:Document:D1->Person:P1"])
	assert.Len(t, g.Edges, 2)
}

func TestExpand_LabelFallsBackToKey(t *testing.T) {
	s, st := seed(t)
	g, err := NewExpander(s, st, nil).Expand(context.Background(), "Person", "P2", 1)
	require.NoError(t, err)
	assert.Equal(t, "P2", g.Nodes[0].Label)
}

func TestExpand_InvalidArguments(t *testing.T) {
	s, st := seed(t)
	e := NewExpander(s, st, nil)
	ctx := context.Background()

	for _, d := range []int{0, 4, -1} {
		_, err := e.Expand(ctx, "Person", "P1", d)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	}
	_, err := e.Expand(ctx, "Spaceship", "S1", 1)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = e.Expand(ctx, "Person", "P404", 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestExpand_StoreError(t *testing.T) {
	s, st := seed(t)
	st.Err = errors.New("timeout")
	_, err := NewExpander(s, st, nil).Expand(context.Background(), "Person", "P1", 1)
	assert.ErrorIs(t, err, errs.ErrStore)
}

func TestExpandWithCommunities(t *testing.T) {
	s, st := seed(t)
	g, err := NewExpander(s, st, nil).ExpandWithCommunities(context.Background(), "Person", "P1", 3, "")
	require.NoError(t, err)
	for _, n := range g.Nodes {
		assert.NotEmpty(t, n.Community, n.ID)
	}
}

func TestExpandWithCommunities_Components(t *testing.T) {
	s, st := seed(t)
	g, err := NewExpander(s, st, nil).ExpandWithCommunities(context.Background(), "Person", "P1", 3, community.MethodComponents)
	require.NoError(t, err)
	require.NotEmpty(t, g.Nodes)
	// The seeded neighbourhood is one connected component.
	for _, n := range g.Nodes {
		assert.Equal(t, "community-1", n.Community, n.ID)
	}
}

func TestExpandWithCommunities_UnknownMethod(t *testing.T) {
	s, st := seed(t)
	_, err := NewExpander(s, st, nil).ExpandWithCommunities(context.Background(), "Person", "P1", 1, "louvain")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestEntityAndProvenance(t *testing.T) {
	s, st := seed(t)
	e := NewExpander(s, st, nil)

	n, err := e.Entity(context.Background(), "Person", "P1")
	require.NoError(t, err)
	assert.Equal(t, "Person:P1", n.ID)
	assert.Equal(t, "Person", n.Type)

	p, err := e.Provenance(context.Background(), "Person", "P1")
	require.NoError(t, err)
	assert.Equal(t, model.Provenance{Source: "persons.csv", ContentHash: "abc", IngestedAt: "2024-01-01T00:00:00Z"}, *p)
}

func TestMentions(t *testing.T) {
	s, st := seed(t)
	e := NewExpander(s, st, nil)

	ms, err := e.Mentions(context.Background(), "Person", "P1")
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "Document:D1", ms[0].Document.ID)
	assert.Equal(t, "J.S.", ms[0].Properties["mention"])

	ms, err = e.Mentions(context.Background(), "Phone", "PH1")
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestRender_UndeclaredLabel(t *testing.T) {
	s, st := seed(t)
	e := NewExpander(s, st, nil)
	n := e.render(model.StoredNode{ElementID: "4:x:9", Labels: []string{"Legacy"}, Properties: map[string]any{}})
	assert.Equal(t, "Legacy:4:x:9", n.ID)
	assert.Equal(t, "4:x:9", n.Label)
}
