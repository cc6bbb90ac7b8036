// Package ingest maps tabular dataset files onto typed graph nodes and edges
// under the loaded ontology. Every write is a MERGE, so a run can be repeated
// or resumed after a failure without creating duplicates.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/ontology"
	"github.com/agenthands/ontograph/internal/logger"
	"github.com/agenthands/ontograph/internal/metrics"
	"github.com/agenthands/ontograph/internal/store"
)

type Options struct {
	BatchSize   int
	Concurrency int
	// TypeColumn and IDColumn carry the target of polymorphic relationship rows.
	TypeColumn    string
	IDColumn      string
	ManifestTable string
}

func DefaultOptions() Options {
	return Options{
		BatchSize:     500,
		Concurrency:   4,
		TypeColumn:    "entity_type",
		IDColumn:      "entity_id",
		ManifestTable: "ingestion_manifests",
	}
}

// ManifestStore records one manifest row per ingested file.
type ManifestStore interface {
	Insert(ctx context.Context, table string, row any) error
}

type Pipeline struct {
	schema    *ontology.Schema
	store     store.Store
	source    Source
	resolver  *ColumnResolver
	opts      Options
	log       *logger.Logger
	metrics   *metrics.Metrics
	manifests ManifestStore
	now       func() time.Time
}

func NewPipeline(schema *ontology.Schema, st store.Store, src Source, resolver *ColumnResolver, opts Options, log *logger.Logger, m *metrics.Metrics) *Pipeline {
	def := DefaultOptions()
	if opts.BatchSize < 1 {
		opts.BatchSize = def.BatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = def.Concurrency
	}
	if opts.TypeColumn == "" {
		opts.TypeColumn = def.TypeColumn
	}
	if opts.IDColumn == "" {
		opts.IDColumn = def.IDColumn
	}
	if opts.ManifestTable == "" {
		opts.ManifestTable = def.ManifestTable
	}
	if resolver == nil {
		resolver = NewColumnResolver(nil)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		schema:   schema,
		store:    st,
		source:   src,
		resolver: resolver,
		opts:     opts,
		log:      log.With("component", "ingest"),
		metrics:  m,
		now:      time.Now,
	}
}

// WithManifests makes the pipeline record a manifest per file after each run.
func (p *Pipeline) WithManifests(ms ManifestStore) *Pipeline {
	p.manifests = ms
	return p
}

// Run ingests every object file, then every relationship file. Files that fail
// are reported and their errors returned joined; other files still complete.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	src, release := runSource(p.source)
	defer release()
	run := *p
	run.source = src
	return run.run(ctx)
}

func (p *Pipeline) run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Source:    p.source.String(),
		StartedAt: p.now().UTC(),
	}
	p.log.Info("Starting ingestion", "run_id", report.RunID, "source", report.Source)

	objects := p.ingestObjects(ctx)
	failedTypes := make(map[string]bool)
	for _, f := range objects {
		if f.err != nil {
			failedTypes[f.Type] = true
		}
	}
	relationships := p.ingestRelationships(ctx, failedTypes)

	report.Files = append(objects, relationships...)
	report.FinishedAt = p.now().UTC()
	p.recordManifests(ctx, report)

	var failures []error
	for _, f := range report.Files {
		if f.err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", f.File, f.err))
		}
	}
	t := report.Totals()
	p.log.Info("Ingestion finished", "run_id", report.RunID, "files", t.Files, "failed", t.Failed,
		"rows", t.Rows, "written", t.Written, "skipped", t.Skipped)
	return report, errors.Join(failures...)
}

func (p *Pipeline) ingestObjects(ctx context.Context) []*FileReport {
	labels := p.schema.Labels()
	reports := make([]*FileReport, len(labels))

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, label := range labels {
		g.Go(func() error {
			reports[i] = p.ingestObjectFile(ctx, p.schema.Objects[label])
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func (p *Pipeline) ingestRelationships(ctx context.Context, failedTypes map[string]bool) []*FileReport {
	var names []string
	for _, name := range p.schema.RelationshipNames() {
		if p.schema.Relationships[name].Dataset != "" {
			names = append(names, name)
		}
	}
	reports := make([]*FileReport, len(names))

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, name := range names {
		g.Go(func() error {
			reports[i] = p.ingestRelationshipFile(ctx, p.schema.Relationships[name], failedTypes)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

// openDataset hashes the file, then opens it again for streaming. A missing
// file marks the report and returns a nil reader.
func (p *Pipeline) openDataset(ctx context.Context, fr *FileReport) (*rowReader, io.Closer, error) {
	hash, err := hashFile(ctx, p.source, fr.File)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			fr.Missing = true
			p.log.Warn("Dataset not found, skipping", "file", fr.File, "type", fr.Type)
			return nil, nil, nil
		}
		return nil, nil, err
	}
	fr.Hash = hash

	rc, err := p.source.Open(ctx, fr.File)
	if err != nil {
		return nil, nil, err
	}
	rr, err := newRowReader(rc)
	if err != nil {
		rc.Close()
		return nil, nil, err
	}
	return rr, rc, nil
}

func (p *Pipeline) ingestObjectFile(ctx context.Context, o *ontology.ObjectType) *FileReport {
	fr := newFileReport(o.DatasetName(), KindObject, o.Name)
	log := p.log.With("file", fr.File, "type", o.Name)

	rr, closer, err := p.openDataset(ctx, fr)
	if err != nil {
		fr.fail(err)
		log.Error("Failed to open dataset", "error", err)
		p.metrics.FileDone(KindObject, true)
		return fr
	}
	if rr == nil {
		return fr
	}
	defer closer.Close()

	log.Info("Ingesting objects", "hash", fr.Hash)
	stamp := model.Stamp(fr.File, fr.Hash, p.now())

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	flush := func(batch []store.NodeRecord) {
		g.Go(func() error {
			n, err := p.store.UpsertNodes(gctx, o.Name, o.Key, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			fr.Written += n
			mu.Unlock()
			return nil
		})
	}

	unknown := make(map[string]bool)
	batch := make([]store.NodeRecord, 0, p.opts.BatchSize)
	for gctx.Err() == nil {
		row, line, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if line == 0 {
				_ = g.Wait()
				fr.fail(fmt.Errorf("read %s: %w", fr.File, err))
				log.Error("Failed to read dataset", "error", err)
				p.finishFile(fr)
				return fr
			}
			fr.Rows++
			fr.Skipped[SkipMalformed]++
			log.Warn("Skipping malformed row", "row", line, "error", err)
			continue
		}
		fr.Rows++

		extra, err := p.schema.ValidateEntityData(o.Name, row)
		if err != nil {
			fr.Skipped[SkipValidation]++
			log.Warn("Skipping invalid row", "row", line, "error", err)
			continue
		}
		for _, f := range extra {
			unknown[f] = true
		}

		props := make(map[string]any, len(row)+3)
		for k, v := range row {
			props[k] = v
		}
		props[ontology.SourceField] = stamp.Source
		props[ontology.HashField] = stamp.ContentHash
		props[ontology.IngestedAtField] = stamp.IngestedAt

		batch = append(batch, store.NodeRecord{Key: row[o.Key], Properties: props})
		if len(batch) >= p.opts.BatchSize {
			flush(batch)
			batch = make([]store.NodeRecord, 0, p.opts.BatchSize)
		}
	}
	if len(batch) > 0 && gctx.Err() == nil {
		flush(batch)
	}
	if err := g.Wait(); err != nil {
		fr.fail(err)
		log.Error("Aborted file after store failure", "error", err)
	} else if err := ctx.Err(); err != nil {
		fr.fail(err)
	}

	if len(unknown) > 0 {
		log.Warn("Dataset has fields the ontology does not declare", "fields", sortedKeys(unknown))
	}
	p.finishFile(fr)
	return fr
}

// edgeGroup batches rows that share a target label.
type edgeGroup struct {
	toLabel string
	toKey   string
	rows    []store.EdgeRecord
}

func (p *Pipeline) ingestRelationshipFile(ctx context.Context, rel *ontology.RelationshipType, failedTypes map[string]bool) *FileReport {
	fr := newFileReport(rel.Dataset, KindRelationship, rel.Name)
	log := p.log.With("file", fr.File, "type", rel.Name)

	if failedTypes[rel.From] || (!rel.Polymorphic() && failedTypes[rel.To]) {
		fr.fail(fmt.Errorf("endpoint object type of %s failed to ingest", rel.Name))
		log.Warn("Skipping relationship file, endpoint type failed to ingest", "from", rel.From, "to", rel.To)
		p.metrics.FileDone(KindRelationship, true)
		return fr
	}
	from := p.schema.Objects[rel.From]

	rr, closer, err := p.openDataset(ctx, fr)
	if err != nil {
		fr.fail(err)
		log.Error("Failed to open dataset", "error", err)
		p.metrics.FileDone(KindRelationship, true)
		return fr
	}
	if rr == nil {
		return fr
	}
	defer closer.Close()
	log.Info("Ingesting relationships", "hash", fr.Hash)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	flush := func(grp *edgeGroup) {
		rows := grp.rows
		grp.rows = make([]store.EdgeRecord, 0, p.opts.BatchSize)
		batch := store.EdgeBatch{
			Type: rel.Name, FromLabel: from.Name, FromKeyField: from.Key,
			ToLabel: grp.toLabel, ToKeyField: grp.toKey, Rows: rows,
		}
		g.Go(func() error {
			written, err := p.store.UpsertEdges(gctx, batch)
			if err != nil {
				return err
			}
			missing := missingRows(rows, written)
			mu.Lock()
			fr.Written += len(written)
			if len(missing) > 0 {
				fr.Skipped[SkipMissingEndpoint] += len(missing)
			}
			mu.Unlock()
			if len(missing) > 0 {
				log.Warn("Dropped rows with missing endpoint", "target", grp.toLabel,
					"rows", missing, "error", errs.ErrMissingEndpoint)
			}
			return nil
		})
	}

	groups := make(map[string]*edgeGroup)
	skip := func(reason string) {
		mu.Lock()
		fr.Skipped[reason]++
		mu.Unlock()
	}
	for gctx.Err() == nil {
		row, line, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if line == 0 {
				_ = g.Wait()
				fr.fail(fmt.Errorf("read %s: %w", fr.File, err))
				log.Error("Failed to read dataset", "error", err)
				p.finishFile(fr)
				return fr
			}
			fr.Rows++
			skip(SkipMalformed)
			log.Warn("Skipping malformed row", "row", line, "error", err)
			continue
		}
		fr.Rows++

		target, reason, err := p.resolveRow(rel, from, row)
		if err != nil {
			skip(reason)
			log.Warn("Skipping relationship row", "row", line, "error", err)
			continue
		}
		if failedTypes[target.label] {
			skip(SkipEndpointTypeFailed)
			continue
		}

		grp, ok := groups[target.label]
		if !ok {
			grp = &edgeGroup{toLabel: target.label, toKey: target.keyField}
			groups[target.label] = grp
		}
		grp.rows = append(grp.rows, store.EdgeRecord{Index: line, FromKey: target.fromKey, ToKey: target.toKey, Properties: target.props})
		if len(grp.rows) >= p.opts.BatchSize {
			flush(grp)
		}
	}
	if gctx.Err() == nil {
		for _, label := range sortedGroupKeys(groups) {
			if grp := groups[label]; len(grp.rows) > 0 {
				flush(grp)
			}
		}
	}
	if err := g.Wait(); err != nil {
		fr.fail(err)
		log.Error("Aborted file after store failure", "error", err)
	} else if err := ctx.Err(); err != nil {
		fr.fail(err)
	}
	p.finishFile(fr)
	return fr
}

type resolvedRow struct {
	label    string
	keyField string
	fromKey  string
	toKey    string
	props    map[string]any
}

// resolveRow finds both endpoints of a relationship row and the remaining
// edge properties. On failure it returns the skip reason.
func (p *Pipeline) resolveRow(rel *ontology.RelationshipType, from *ontology.ObjectType, row map[string]string) (resolvedRow, string, error) {
	consumed := make(map[string]bool, 4)
	var out resolvedRow

	if rel.Polymorphic() {
		col, fromKey, err := p.resolver.Resolve(rel.Name, From, from.Key, row)
		if err != nil {
			return out, SkipAmbiguity, err
		}
		tag, ok := row[p.opts.TypeColumn]
		if !ok {
			return out, SkipAmbiguity, fmt.Errorf("%w: missing %s column", errs.ErrResolutionAmbiguity, p.opts.TypeColumn)
		}
		to, err := p.schema.ObjectType(tag)
		if err != nil {
			return out, SkipUnknownType, err
		}
		toKey, ok := row[p.opts.IDColumn]
		if !ok {
			return out, SkipAmbiguity, fmt.Errorf("%w: missing %s column", errs.ErrResolutionAmbiguity, p.opts.IDColumn)
		}
		if col == p.opts.IDColumn {
			return out, SkipAmbiguity, fmt.Errorf("%w: both endpoints of %s resolve to column %q", errs.ErrResolutionAmbiguity, rel.Name, col)
		}
		consumed[col], consumed[p.opts.TypeColumn], consumed[p.opts.IDColumn] = true, true, true
		out = resolvedRow{label: to.Name, keyField: to.Key, fromKey: fromKey, toKey: toKey}
	} else {
		to := p.schema.Objects[rel.To]
		fromCol, fromKey, toCol, toKey, err := p.resolver.ResolvePair(rel.Name, from.Key, to.Key, row)
		if err != nil {
			return out, SkipAmbiguity, err
		}
		consumed[fromCol], consumed[toCol] = true, true
		out = resolvedRow{label: to.Name, keyField: to.Key, fromKey: fromKey, toKey: toKey}
	}

	out.props = make(map[string]any, len(row))
	for k, v := range row {
		if !consumed[k] {
			out.props[k] = v
		}
	}
	return out, "", nil
}

func (p *Pipeline) finishFile(fr *FileReport) {
	p.metrics.AddRows(fr.Kind, "written", fr.Written)
	p.metrics.AddRows(fr.Kind, "skipped", fr.SkippedTotal())
	p.metrics.FileDone(fr.Kind, fr.err != nil)
}

func (p *Pipeline) recordManifests(ctx context.Context, r *Report) {
	if p.manifests == nil {
		return
	}
	for _, f := range r.Files {
		if f.Missing {
			continue
		}
		row := map[string]any{
			"run_id":      r.RunID,
			"source":      r.Source,
			"file":        f.File,
			"kind":        f.Kind,
			"type":        f.Type,
			"hash":        f.Hash,
			"rows":        f.Rows,
			"written":     f.Written,
			"skipped":     f.Skipped,
			"error":       f.Err,
			"ingested_at": r.FinishedAt.Format(time.RFC3339),
		}
		if err := p.manifests.Insert(ctx, p.opts.ManifestTable, row); err != nil {
			p.log.Warn("Failed to record ingestion manifest", "file", f.File, "error", err)
		}
	}
}

// missingRows returns the indices of rows that the store did not write.
func missingRows(rows []store.EdgeRecord, written []int) []int {
	ok := make(map[int]bool, len(written))
	for _, i := range written {
		ok[i] = true
	}
	var missing []int
	for _, r := range rows {
		if !ok[r.Index] {
			missing = append(missing, r.Index)
		}
	}
	return missing
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedGroupKeys(m map[string]*edgeGroup) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
