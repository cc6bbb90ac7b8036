package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/store"
)

func newTestPipeline(t *testing.T, st store.Store, files map[string]string, batch int) *Pipeline {
	opts := DefaultOptions()
	opts.BatchSize = batch
	return NewPipeline(testSchema(t), st, newMemSource(files), NewColumnResolver(nil), opts, nil, nil)
}

func ref(label, key string) model.NodeRef { return model.NodeRef{Label: label, Key: key} }

func TestRun_IngestsObjectsAndRelationships(t *testing.T) {
	ctx := context.Background()
	st := store.NewMockStore()
	p := newTestPipeline(t, st, sampleFiles(), 1)

	report, err := p.Run(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)

	persons, _ := st.CountNodes(ctx, "Person")
	phones, _ := st.CountNodes(ctx, "Phone")
	assert.Equal(t, int64(2), persons)
	assert.Equal(t, int64(2), phones)

	people := report.File("persons.csv")
	require.NotNil(t, people)
	assert.Equal(t, 3, people.Rows)
	assert.Equal(t, 2, people.Written)
	assert.Equal(t, 1, people.Skipped[SkipValidation])
	assert.Len(t, people.Hash, 64)

	n, err := st.GetNode(ctx, "Person", "person_id", "P001")
	require.NoError(t, err)
	assert.Equal(t, "John Smith", n.Prop("full_name"))
	assert.Equal(t, "persons.csv", n.Prop("_source"))
	assert.Equal(t, people.Hash, n.Prop("_hash"))
	assert.NotEmpty(t, n.Prop("_ingested_at"))

	// empty values are dropped before upsert
	n2, err := st.GetNode(ctx, "Person", "person_id", "P002")
	require.NoError(t, err)
	_, hasNickname := n2.Properties["nickname"]
	assert.False(t, hasNickname)
}

func TestRun_CallScenario(t *testing.T) {
	ctx := context.Background()
	st := store.NewMockStore()
	p := newTestPipeline(t, st, sampleFiles(), 500)

	report, err := p.Run(ctx)
	require.NoError(t, err)

	props, ok := st.Edge(model.EdgeRef{Type: "CALL", From: ref("Phone", "PH1"), To: ref("Phone", "PH2")})
	require.True(t, ok)
	assert.Equal(t, "2024-01-01T10:00:00Z", props["timestamp"])
	assert.Equal(t, "60", props["duration_s"])
	assert.Equal(t, "C1", props["call_id"])
	assert.NotContains(t, props, "from_phone")
	assert.NotContains(t, props, "to_phone")

	calls := report.File("calls.csv")
	require.NotNil(t, calls)
	assert.Equal(t, 1, calls.Written)
	assert.Equal(t, 1, calls.Skipped[SkipMissingEndpoint])

	n, _ := st.CountEdges(ctx, "CALL")
	assert.Equal(t, int64(1), n)
}

func TestRun_PolymorphicRelationship(t *testing.T) {
	ctx := context.Background()
	st := store.NewMockStore()
	report, err := newTestPipeline(t, st, sampleFiles(), 500).Run(ctx)
	require.NoError(t, err)

	props, ok := st.Edge(model.EdgeRef{Type: "DOC_MENTIONS_ENTITY", From: ref("Document", "D1"), To: ref("Person", "P001")})
	require.True(t, ok)
	assert.Equal(t, map[string]any{"mention": "J. Smith"}, props)

	mentions := report.File("doc_mentions.csv")
	assert.Equal(t, 1, mentions.Written)
	assert.Equal(t, 1, mentions.Skipped[SkipUnknownType])
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMockStore()
	p := newTestPipeline(t, st, sampleFiles(), 2)

	_, err := p.Run(ctx)
	require.NoError(t, err)
	counts := func() []int64 {
		var out []int64
		for _, l := range []string{"Person", "Phone", "Document"} {
			n, _ := st.CountNodes(ctx, l)
			out = append(out, n)
		}
		for _, r := range []string{"OWNS_PHONE", "CALL", "DOC_MENTIONS_ENTITY"} {
			n, _ := st.CountEdges(ctx, r)
			out = append(out, n)
		}
		return out
	}
	first := counts()
	nodeWrites, edgeWrites := st.NodeWrites, st.EdgeWrites
	require.Positive(t, nodeWrites)
	require.Positive(t, edgeWrites)

	_, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, counts())
	// the second run merges every row again rather than creating duplicates
	assert.Equal(t, 2*nodeWrites, st.NodeWrites)
	assert.Equal(t, 2*edgeWrites, st.EdgeWrites)
}

func TestRun_KeyUniqueness(t *testing.T) {
	ctx := context.Background()
	st := store.NewMockStore()
	files := map[string]string{
		"persons.csv": "person_id,full_name\nP001,John Smith\nP001,John A. Smith\n",
	}
	report, err := newTestPipeline(t, st, files, 1).Run(ctx)
	require.NoError(t, err)

	n, _ := st.CountNodes(ctx, "Person")
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 2, report.File("persons.csv").Rows)
}

func TestRun_EdgeAmbiguity(t *testing.T) {
	ctx := context.Background()
	st := store.NewMockStore()
	files := map[string]string{
		"phones.csv": "phone_id\nPH1\n",
		"calls.csv":  "phone_id,duration_s\nPH1,10\n",
	}
	report, err := newTestPipeline(t, st, files, 10).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.File("calls.csv").Skipped[SkipAmbiguity])
	n, _ := st.CountEdges(ctx, "CALL")
	assert.Zero(t, n)
}

func TestRun_MissingFilesAreSkipped(t *testing.T) {
	st := store.NewMockStore()
	report, err := newTestPipeline(t, st, map[string]string{}, 10).Run(context.Background())
	require.NoError(t, err)

	for _, f := range report.Files {
		assert.True(t, f.Missing, f.File)
	}
	assert.Zero(t, report.Totals().Files)
}

func TestRun_StoreFailureIsFileScoped(t *testing.T) {
	ctx := context.Background()
	st := store.NewMockStore()
	st.FailOn["Phone"] = errors.New("connection reset")

	report, err := newTestPipeline(t, st, sampleFiles(), 1).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrStore)

	assert.Error(t, report.File("phones.csv").Error())
	assert.NoError(t, report.File("persons.csv").Error())
	assert.Error(t, report.File("calls.csv").Error())
	assert.Error(t, report.File("person_phone.csv").Error())

	persons, _ := st.CountNodes(ctx, "Person")
	assert.Equal(t, int64(2), persons)
	n, _ := st.CountEdges(ctx, "CALL")
	assert.Zero(t, n)
}

func TestRun_RecordsManifests(t *testing.T) {
	st := store.NewMockStore()
	manifests := &fakeManifests{}
	p := newTestPipeline(t, st, sampleFiles(), 10).WithManifests(manifests)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, manifests.rows, 6)
	for _, m := range manifests.rows {
		assert.Equal(t, "ingestion_manifests", m.table)
		assert.Equal(t, report.RunID, m.row["run_id"])
	}
}

func TestRun_ManifestFailureIsNotFatal(t *testing.T) {
	st := store.NewMockStore()
	p := newTestPipeline(t, st, sampleFiles(), 10).WithManifests(&fakeManifests{err: errors.New("503")})

	_, err := p.Run(context.Background())
	assert.NoError(t, err)
}

func TestRun_HashesThenStreams(t *testing.T) {
	src := newMemSource(sampleFiles())
	p := NewPipeline(testSchema(t), store.NewMockStore(), src, nil, DefaultOptions(), nil, nil)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.opens["persons.csv"])
}
