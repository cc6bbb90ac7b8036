package community

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ontograph/internal/core/model"
)

func triangle(a, b, c string) []model.GraphEdge {
	return []model.GraphEdge{edge(a, b), edge(b, c), edge(c, a)}
}

func TestLPA_DisconnectedComponents(t *testing.T) {
	ns := nodes("1", "2", "3", "4", "5", "6")
	es := append(triangle("1", "2", "3"), triangle("4", "5", "6")...)

	communities, err := NewLabelPropagationDetector().Detect(ns, es)
	require.NoError(t, err)

	require.Len(t, communities, 2)
	for _, c := range communities {
		assert.Len(t, c, 3)
	}
}

func TestLPA_BridgeNode(t *testing.T) {
	// Two triangles joined by 3-4; the bridge is outweighed on both sides.
	ns := nodes("1", "2", "3", "4", "5", "6")
	es := append(triangle("1", "2", "3"), triangle("4", "5", "6")...)
	es = append(es, edge("3", "4"))

	communities, err := NewLabelPropagationDetector().Detect(ns, es)
	require.NoError(t, err)
	assert.Len(t, communities, 2)
}

func TestLPA_LargeClique(t *testing.T) {
	ns := nodes("1", "2", "3", "4", "5")
	var es []model.GraphEdge
	for i := range ns {
		for j := i + 1; j < len(ns); j++ {
			es = append(es, edge(ns[i].ID, ns[j].ID))
		}
	}

	communities, err := NewLabelPropagationDetector().Detect(ns, es)
	require.NoError(t, err)
	require.Len(t, communities, 1)
	assert.Len(t, communities[0], 5)
}

func TestLPA_Deterministic(t *testing.T) {
	ns := nodes("a", "b", "c", "d", "e", "f", "g")
	es := append(triangle("a", "b", "c"), triangle("d", "e", "f")...)
	es = append(es, edge("c", "d"), edge("f", "g"))

	first, err := NewLabelPropagationDetector().Detect(ns, es)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := NewLabelPropagationDetector().Detect(ns, es)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPickLabel(t *testing.T) {
	assert.Equal(t, "x", pickLabel(map[string]int{"x": 2, "y": 2}, "x"))
	assert.Equal(t, "z", pickLabel(map[string]int{"y": 2, "z": 2}, "x"))
	assert.Equal(t, "y", pickLabel(map[string]int{"y": 3, "z": 2}, "z"))
}
