package store

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ontograph/internal/core/ontology"
)

type MockDriver struct {
	QueryExecuted string
	QueryParams   map[string]interface{}
	Writes        int
	MockResult    neo4j.EagerResult
	Err           error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.QueryExecuted = query
	m.QueryParams = params
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	return m.MockResult, nil
}

func (m *MockDriver) ExecuteWrite(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Writes++
	return m.ExecuteQuery(ctx, query, params)
}

func (m *MockDriver) VerifyConnectivity(ctx context.Context) error { return nil }

func (m *MockDriver) Close(ctx context.Context) error { return nil }

func record(keys []string, values ...any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

const testOntology = `
version: 1
objects:
  Person:
    key: person_id
    properties: [full_name, dob]
  Phone:
    key: phone_id
    properties: [msisdn]
  Document:
    key: doc_id
    properties: [title]
relationships:
  OWNS_PHONE: {from: Person, to: Phone, dataset: person_phone.csv}
  CALL: {from: Phone, to: Phone, dataset: calls.csv, properties: [timestamp, duration_s]}
  DOC_MENTIONS_ENTITY: {from: Document, to: "*", dataset: doc_mentions.csv}
`

func testSchema(t *testing.T) *ontology.Schema {
	t.Helper()
	s, err := ontology.Parse([]byte(testOntology))
	require.NoError(t, err)
	return s
}
