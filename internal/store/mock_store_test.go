package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
)

func phone(id string) NodeRecord {
	return NodeRecord{Key: id, Properties: map[string]any{"msisdn": "+44" + id}}
}

func TestMockStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()

	for i := 0; i < 2; i++ {
		_, err := s.UpsertNodes(ctx, "Phone", "phone_id", []NodeRecord{phone("PH1"), phone("PH2")})
		require.NoError(t, err)
		_, err = s.UpsertEdges(ctx, EdgeBatch{Type: "CALL", FromLabel: "Phone", FromKeyField: "phone_id",
			ToLabel: "Phone", ToKeyField: "phone_id", Rows: []EdgeRecord{{FromKey: "PH1", ToKey: "PH2"}}})
		require.NoError(t, err)
	}

	nodes, _ := s.CountNodes(ctx, "Phone")
	edges, _ := s.CountEdges(ctx, "CALL")
	assert.Equal(t, int64(2), nodes)
	assert.Equal(t, int64(1), edges)
}

func TestMockStore_EdgeNeedsBothEndpoints(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()
	_, _ = s.UpsertNodes(ctx, "Phone", "phone_id", []NodeRecord{phone("PH1")})

	written, err := s.UpsertEdges(ctx, EdgeBatch{Type: "CALL", FromLabel: "Phone", FromKeyField: "phone_id",
		ToLabel: "Phone", ToKeyField: "phone_id", Rows: []EdgeRecord{{Index: 4, FromKey: "PH1", ToKey: "PH9"}}})
	require.NoError(t, err)
	assert.Empty(t, written)
	n, _ := s.CountEdges(ctx, "CALL")
	assert.Zero(t, n)
}

func TestMockStore_NeighborhoodBound(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()
	_, _ = s.UpsertNodes(ctx, "Phone", "phone_id", []NodeRecord{phone("A"), phone("B"), phone("C"), phone("D"), phone("E")})
	chain := []EdgeRecord{{FromKey: "A", ToKey: "B"}, {FromKey: "C", ToKey: "B"}, {FromKey: "C", ToKey: "D"}, {FromKey: "D", ToKey: "E"}}
	_, _ = s.UpsertEdges(ctx, EdgeBatch{Type: "CALL", FromLabel: "Phone", FromKeyField: "phone_id",
		ToLabel: "Phone", ToKeyField: "phone_id", Rows: chain})

	for depth, want := range map[int]int{1: 1, 2: 2, 3: 3} {
		hops, err := s.Neighborhood(ctx, "Phone", "phone_id", "A", depth)
		require.NoError(t, err)
		assert.Len(t, hops, want, "depth %d", depth)
	}
	_, err := s.Neighborhood(ctx, "Phone", "phone_id", "A", 0)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestMockStore_SameAs(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()
	_, _ = s.UpsertNodes(ctx, "Person", "person_id", []NodeRecord{{Key: "P001"}, {Key: "P002"}})
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	ok, err := s.MergeSameAs(ctx, "Person", "person_id", "P001", "P002", at)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.MergeSameAs(ctx, "Person", "person_id", "P001", "P002", at.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	props, found := s.Edge(model.EdgeRef{Type: model.SameAs,
		From: model.NodeRef{Label: "Person", Key: "P001"}, To: model.NodeRef{Label: "Person", Key: "P002"}})
	require.True(t, found)
	assert.Equal(t, "2024-05-01T01:00:00Z", props[ResolvedAtField])
	assert.Equal(t, model.ResolvedStatus, props[StatusField])

	nb, err := s.SameAsNeighbors(ctx, "Person", "person_id", []string{"P002"})
	require.NoError(t, err)
	assert.Equal(t, []string{"P001"}, nb["P002"])

	ok, err = s.MergeSameAs(ctx, "Person", "person_id", "P001", "P404", at)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMockStore_FailOn(t *testing.T) {
	s := NewMockStore()
	s.FailOn["Phone"] = errors.New("disk full")

	_, err := s.UpsertNodes(context.Background(), "Phone", "phone_id", []NodeRecord{phone("PH1")})
	assert.ErrorIs(t, err, errs.ErrStore)
	_, err = s.UpsertNodes(context.Background(), "Person", "person_id", []NodeRecord{{Key: "P1"}})
	assert.NoError(t, err)
}
