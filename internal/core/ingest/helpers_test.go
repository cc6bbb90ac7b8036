package ingest

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/ontology"
)

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

// memSource serves datasets from memory and counts opens.
type memSource struct {
	mu    sync.Mutex
	files map[string]string
	opens map[string]int
}

func newMemSource(files map[string]string) *memSource {
	return &memSource{files: files, opens: make(map[string]int)}
}

func (m *memSource) String() string { return "mem" }

func (m *memSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.files[name]
	if !ok {
		return nil, &errs.NotFoundError{Kind: "dataset", Name: name}
	}
	m.opens[name]++
	return io.NopCloser(strings.NewReader(body)), nil
}

type recordedManifest struct {
	table string
	row   map[string]any
}

type fakeManifests struct {
	mu   sync.Mutex
	rows []recordedManifest
	err  error
}

func (f *fakeManifests) Insert(ctx context.Context, table string, row any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, recordedManifest{table: table, row: row.(map[string]any)})
	return nil
}

func sampleFiles() map[string]string {
	return map[string]string{
		"persons.csv": "person_id,full_name,dob,nickname\n" +
			"P001,John Smith,1980-01-01,Johnny\n" +
			"P002,Jon Smith,1980-01-01,\n" +
			",No Key,1990-01-01,\n",
		"phones.csv": "phone_id,msisdn\nPH1,+441111\nPH2,+442222\n",
		"documents.csv": "doc_id,title\nD1,Field report\n",
		"person_phone.csv": "person_id,phone_id,since\nP001,PH1,2020\nP002,PH2,\n",
		"calls.csv": "call_id,from_phone,to_phone,timestamp,duration_s\n" +
			"C1,PH1,PH2,2024-01-01T10:00:00Z,60\n" +
			"C2,PH1,PH9,2024-01-01T11:00:00Z,5\n",
		"doc_mentions.csv": "doc_id,entity_type,entity_id,mention\n" +
			"D1,Person,P001,J. Smith\n" +
			"D1,Spaceship,S1,Enterprise\n",
	}
}
