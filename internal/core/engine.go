// Package core wires the ontology, graph store and the ingestion, traversal and
// resolution engines into one Engine that is built once and passed around.
package core

import (
	"context"

	"github.com/agenthands/ontograph/internal/core/ingest"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/ontology"
	"github.com/agenthands/ontograph/internal/core/resolution"
	"github.com/agenthands/ontograph/internal/core/traverse"
	"github.com/agenthands/ontograph/internal/logger"
	"github.com/agenthands/ontograph/internal/metrics"
	"github.com/agenthands/ontograph/internal/store"
)

type Options struct {
	Source     ingest.Source
	Ingest     ingest.Options
	Aliases    []ingest.Alias
	Display    model.DisplayFields
	Heuristics []resolution.HeuristicSpec
	Manifests  ingest.ManifestStore
	Log        *logger.Logger
	Metrics    *metrics.Metrics
}

type Engine struct {
	Schema     *ontology.Schema
	Store      store.Store
	Traversal  *traverse.Expander
	Resolution *resolution.Resolver
	Log        *logger.Logger
	Metrics    *metrics.Metrics

	// Manifests is nil when no document store is configured.
	Manifests ingest.ManifestStore

	source     ingest.Source
	ingestOpts ingest.Options
	columns    *ingest.ColumnResolver
}

func NewEngine(schema *ontology.Schema, st store.Store, opts Options) (*Engine, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}

	registry := resolution.DefaultRegistry()
	configured := len(opts.Heuristics) > 0
	if configured {
		registry = resolution.NewRegistry()
		for _, spec := range opts.Heuristics {
			h, err := resolution.BuildHeuristic(spec)
			if err != nil {
				return nil, err
			}
			registry.Register(h)
		}
	}
	for _, typ := range registry.Types() {
		// the default heuristic is skipped for ontologies without its type
		if _, ok := schema.Objects[typ]; !ok && !configured {
			continue
		}
		for _, h := range registry.For(typ) {
			if err := resolution.CheckHeuristic(schema, h); err != nil {
				return nil, err
			}
		}
	}

	display := model.DefaultDisplayFields()
	for typ, field := range opts.Display {
		display[typ] = field
	}

	return &Engine{
		Schema:     schema,
		Store:      st,
		Traversal:  traverse.NewExpander(schema, st, display),
		Resolution: resolution.NewResolver(schema, st, registry, display, log, opts.Metrics),
		Log:        log,
		Metrics:    opts.Metrics,
		source:     opts.Source,
		ingestOpts: opts.Ingest,
		Manifests:  opts.Manifests,
		columns:    ingest.NewColumnResolver(opts.Aliases),
	}, nil
}

func (e *Engine) BuildIndices(ctx context.Context) error {
	return e.Store.EnsureConstraints(ctx)
}

// Ingest runs the pipeline over the configured source.
func (e *Engine) Ingest(ctx context.Context) (*ingest.Report, error) {
	return e.IngestFrom(ctx, e.source)
}

// IngestFrom runs the pipeline over src.
func (e *Engine) IngestFrom(ctx context.Context, src ingest.Source) (*ingest.Report, error) {
	if src == nil {
		return nil, errNoSource
	}
	p := ingest.NewPipeline(e.Schema, e.Store, src, e.columns, e.ingestOpts, e.Log, e.Metrics)
	if e.Manifests != nil {
		p.WithManifests(e.Manifests)
	}
	return p.Run(ctx)
}

func (e *Engine) Close(ctx context.Context) error {
	return e.Store.Close(ctx)
}
