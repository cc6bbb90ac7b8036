package core

import (
	"context"
	"errors"
	"time"

	"github.com/agenthands/ontograph/internal/config"
	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/ingest"
	"github.com/agenthands/ontograph/internal/core/ontology"
	"github.com/agenthands/ontograph/internal/core/resolution"
	"github.com/agenthands/ontograph/internal/docstore"
	"github.com/agenthands/ontograph/internal/driver"
	"github.com/agenthands/ontograph/internal/logger"
	"github.com/agenthands/ontograph/internal/metrics"
	"github.com/agenthands/ontograph/internal/store"
)

var errNoSource = errors.New("no dataset source configured")

// Open loads the ontology, connects to the graph store and builds an Engine
// from cfg. Schema errors are returned as is so that startup aborts.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*Engine, error) {
	schema, err := ontology.Load(cfg.Ontology.Path)
	if err != nil {
		return nil, err
	}

	d, err := driver.NewNeo4jDriver(ctx, driver.Options{
		URI:            cfg.Neo4j.URI,
		User:           cfg.Neo4j.User,
		Password:       cfg.Neo4j.Password,
		Database:       cfg.Neo4j.Database,
		MaxPoolSize:    cfg.Neo4j.MaxPoolSize,
		ConnectTimeout: time.Duration(cfg.Neo4j.ConnectTimeoutSeconds) * time.Second,
		QueryTimeout:   time.Duration(cfg.Neo4j.QueryTimeoutSeconds) * time.Second,
		ReadRetries:    *cfg.Neo4j.ReadRetries,
	}, log, m)
	if err != nil {
		return nil, err
	}

	src, err := SourceFromConfig(ctx, cfg.Ingest)
	if err != nil {
		_ = d.Close(ctx)
		return nil, err
	}

	opts := OptionsFromConfig(cfg)
	opts.Source = src
	opts.Log = log
	opts.Metrics = m
	if dc := docstore.New(cfg.DocStore.URL, cfg.DocStore.APIKey, time.Duration(cfg.DocStore.TimeoutSeconds)*time.Second); dc.Configured() {
		opts.Manifests = dc
	}

	e, err := NewEngine(schema, store.NewNeo4jStore(d, schema, log), opts)
	if err != nil {
		_ = d.Close(ctx)
		return nil, err
	}
	return e, nil
}

// OptionsFromConfig maps the ingestion, traversal and resolution sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Ingest: ingest.Options{
			BatchSize:     cfg.Ingest.BatchSize,
			Concurrency:   cfg.Concurrency.BulkIngest,
			TypeColumn:    cfg.Ingest.TypeColumn,
			IDColumn:      cfg.Ingest.IDColumn,
			ManifestTable: cfg.DocStore.ManifestTable,
		},
		Display: cfg.Traversal.DisplayFields,
	}
	for _, a := range cfg.Ingest.Aliases {
		opts.Aliases = append(opts.Aliases, ingest.Alias{
			Relationship: a.Relationship,
			Endpoint:     ingest.Endpoint(a.Endpoint),
			Column:       a.Column,
		})
	}
	for _, h := range cfg.Resolution.Heuristics {
		opts.Heuristics = append(opts.Heuristics, resolution.HeuristicSpec{
			Type:       h.Type,
			Kind:       h.Kind,
			NameField:  h.NameField,
			BlockField: h.BlockField,
			Confidence: h.Confidence,
		})
	}
	return opts
}

// SourceFromConfig picks S3 when a bucket is set, else the local data directory.
func SourceFromConfig(ctx context.Context, cfg config.IngestConfig) (ingest.Source, error) {
	if cfg.S3.Bucket != "" {
		return ingest.NewS3Source(ctx, ingest.S3Params{
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
	}
	if cfg.DataDir == "" {
		return nil, errs.InvalidArgument("ingest.data_dir or ingest.s3.bucket must be set")
	}
	return ingest.NewDirSource(cfg.DataDir), nil
}
