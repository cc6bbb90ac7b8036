package resolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/ontology"
)

func node(name, dob string) model.StoredNode {
	return model.StoredNode{Properties: map[string]any{"full_name": name, "dob": dob}}
}

func TestDOBNameToken_Match(t *testing.T) {
	h := NewDOBNameToken()
	cases := []struct {
		a, b model.StoredNode
		want bool
	}{
		{node("Ayaan Khan", "1990-01-01"), node("Ayaan Rao", "1990-01-01"), true},
		{node("AYAAN Khan", "1990-01-01"), node("ayaan", "1990-01-01"), true},
		{node("Khan Ayaan", "1990-01-01"), node("Ayaan Rao", "1990-01-01"), true},
		{node("Ayaan Khan", "1990-01-01"), node("Ayaan Khan", "1990-01-02"), false},
		{node("John Smith", "1980-01-01"), node("Jon Smith", "1980-01-01"), false},
		{node("", "1980-01-01"), node("Jon Smith", "1980-01-01"), false},
		{node("Ann", ""), node("Ann", ""), false},
	}
	for _, c := range cases {
		_, got := h.Match(c.a, c.b)
		assert.Equal(t, c.want, got, "%v / %v", c.a.Properties, c.b.Properties)
		_, rev := h.Match(c.b, c.a)
		assert.Equal(t, got, rev)
	}
}

func TestBuildHeuristic(t *testing.T) {
	h, err := BuildHeuristic(HeuristicSpec{Type: "Suspect", NameField: "alias", BlockField: "birth_date"})
	require.NoError(t, err)
	assert.Equal(t, "Suspect", h.Type())
	assert.Equal(t, "birth_date", h.BlockField())
	assert.Equal(t, DefaultConfidence, h.Confidence())

	_, err = BuildHeuristic(HeuristicSpec{Kind: "phonetic"})
	assert.Error(t, err)
}

func TestCheckHeuristic(t *testing.T) {
	schema, err := ontology.Parse([]byte("version: 1\nobjects:\n  Person: {key: person_id, properties: [full_name, dob]}\n"))
	require.NoError(t, err)

	assert.NoError(t, CheckHeuristic(schema, NewDOBNameToken()))
	assert.ErrorIs(t, CheckHeuristic(schema, &DOBNameToken{EntityType: "Person", NameField: "full_name", DOBField: "birth_year"}), errs.ErrInvalidArgument)
	assert.ErrorIs(t, CheckHeuristic(schema, &DOBNameToken{EntityType: "Suspect", NameField: "full_name", DOBField: "dob"}), errs.ErrInvalidArgument)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(&DOBNameToken{EntityType: "Suspect"}, NewDOBNameToken())
	assert.Equal(t, []string{"Person", "Suspect"}, r.Types())
	assert.Len(t, r.For("Person"), 1)
	assert.Empty(t, r.For("Phone"))
}
