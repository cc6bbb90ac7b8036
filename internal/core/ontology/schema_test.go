package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ontograph/internal/core/errs"
)

func TestLoad(t *testing.T) {
	s, err := Load("testdata/ontology.yaml")
	require.NoError(t, err)

	assert.Equal(t, 1, s.Version)
	person, err := s.ObjectType("Person")
	require.NoError(t, err)
	assert.Equal(t, "person_id", person.Key)
	assert.Equal(t, "persons.csv", person.DatasetName())

	call, err := s.RelationshipType("CALL")
	require.NoError(t, err)
	assert.Equal(t, "Phone", call.From)
	assert.False(t, call.Polymorphic())

	mentions, err := s.RelationshipType("DOC_MENTIONS_ENTITY")
	require.NoError(t, err)
	assert.True(t, mentions.Polymorphic())

	assert.Contains(t, s.Labels(), "Document")
	assert.Contains(t, s.Fields(), "msisdn")
	assert.Equal(t, []string{"UNCLASSIFIED", "RESTRICTED", "SECRET"}, s.SecurityMarkings["classification"])
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"undeclared from": `
objects:
  Phone: {key: phone_id}
relationships:
  CALL: {from: Handset, to: Phone}
`,
		"undeclared to": `
objects:
  Phone: {key: phone_id}
relationships:
  CALL: {from: Phone, to: Handset}
`,
		"missing key": `
objects:
  Phone: {properties: [msisdn]}
`,
		"bad label": `
objects:
  "Phone) DETACH DELETE n //": {key: phone_id}
`,
		"bad key": `
objects:
  Phone: {key: "phone id"}
`,
		"not yaml": "objects: [unterminated",
		"empty":    "version: 2\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrSchema)
		})
	}
}

func TestParse_WildcardOnlyAsTarget(t *testing.T) {
	_, err := Parse([]byte(`
objects:
  Document: {key: doc_id}
relationships:
  MENTIONED_IN: {from: "*", to: Document}
`))
	assert.ErrorIs(t, err, errs.ErrSchema)
}

func TestLookupNotFound(t *testing.T) {
	s, err := Load("testdata/ontology.yaml")
	require.NoError(t, err)

	_, err = s.ObjectType("Spaceship")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = s.RelationshipType("PILOTS")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestValidateEntityData(t *testing.T) {
	s, err := Load("testdata/ontology.yaml")
	require.NoError(t, err)

	unknown, err := s.ValidateEntityData("Person", map[string]string{
		"person_id":  "P001",
		"full_name":  "Ayaan Khan",
		"shoe_size":  "44",
		SourceField:  "persons.csv",
		HashField:    "abc",
		"eye_colour": "brown",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"eye_colour", "shoe_size"}, unknown)

	_, err = s.ValidateEntityData("Person", map[string]string{"full_name": "No Key"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = s.ValidateEntityData("Person", map[string]string{"person_id": "  "})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = s.ValidateEntityData("Spaceship", map[string]string{"id": "1"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
