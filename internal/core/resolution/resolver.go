// Package resolution finds likely duplicate entities and records operator
// merges as SAME_AS edges.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/ontology"
	"github.com/agenthands/ontograph/internal/logger"
	"github.com/agenthands/ontograph/internal/metrics"
	"github.com/agenthands/ontograph/internal/store"
)

type Resolver struct {
	schema   *ontology.Schema
	store    store.Store
	registry *Registry
	display  model.DisplayFields
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewResolver(schema *ontology.Schema, st store.Store, registry *Registry, display model.DisplayFields, log *logger.Logger, m *metrics.Metrics) *Resolver {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if len(display) == 0 {
		display = model.DefaultDisplayFields()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Resolver{
		schema:   schema,
		store:    st,
		registry: registry,
		display:  display,
		log:      log.With("component", "resolution"),
		metrics:  m,
		now:      time.Now,
	}
}

// FindDuplicates applies every heuristic registered for typ. Each unordered
// pair is reported once with IDA < IDB; the first matching heuristic wins.
func (r *Resolver) FindDuplicates(ctx context.Context, typ string) ([]model.DuplicateCandidate, error) {
	o, err := r.objectType(typ)
	if err != nil {
		return nil, err
	}

	seen := make(map[[2]string]bool)
	out := []model.DuplicateCandidate{}
	for _, h := range r.registry.For(o.Name) {
		blocks, err := r.store.CandidateBlocks(ctx, o.Name, h.BlockField())
		if err != nil {
			return nil, err
		}
		for _, block := range blocks {
			for i := 0; i < len(block); i++ {
				for j := i + 1; j < len(block); j++ {
					a, b := block[i], block[j]
					ida, idb := a.Prop(o.Key), b.Prop(o.Key)
					if ida == "" || idb == "" || ida == idb {
						continue
					}
					if idb < ida {
						a, b = b, a
						ida, idb = idb, ida
					}
					pair := [2]string{ida, idb}
					if seen[pair] {
						continue
					}
					reason, ok := h.Match(a, b)
					if !ok {
						continue
					}
					seen[pair] = true
					out = append(out, model.DuplicateCandidate{
						IDA:        ida,
						IDB:        idb,
						Reason:     reason,
						Confidence: h.Confidence(),
						NameA:      r.display.Label(o.Name, a, ida),
						NameB:      r.display.Label(o.Name, b, idb),
					})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IDA != out[j].IDA {
			return out[i].IDA < out[j].IDA
		}
		return out[i].IDB < out[j].IDB
	})
	return out, nil
}

// SuggestMerges runs FindDuplicates for every type with a heuristic.
func (r *Resolver) SuggestMerges(ctx context.Context) ([]model.Suggestion, error) {
	out := []model.Suggestion{}
	for _, typ := range r.registry.Types() {
		if _, ok := r.schema.Objects[typ]; !ok {
			r.log.Warn("Heuristic registered for undeclared type", "type", typ)
			continue
		}
		dups, err := r.FindDuplicates(ctx, typ)
		if err != nil {
			return nil, err
		}
		for _, d := range dups {
			out = append(out, model.Suggestion{
				Type:       typ,
				Entities:   [2]string{d.IDA, d.IDB},
				Confidence: d.Confidence,
				Reason:     d.Reason,
				Preview:    d.NameA + " / " + d.NameB,
			})
		}
	}
	return out, nil
}

// Resolve records that each duplicate is the same entity as primary. Every
// id must exist; nothing is written if one does not.
func (r *Resolver) Resolve(ctx context.Context, primary string, duplicates []string, typ string) error {
	o, err := r.objectType(typ)
	if err != nil {
		return err
	}
	if primary == "" {
		return errs.InvalidArgument("primary id must not be empty")
	}
	if len(duplicates) == 0 {
		return errs.InvalidArgument("at least one duplicate id is required")
	}
	var dups []string
	seen := make(map[string]bool)
	for _, d := range duplicates {
		if d == "" {
			return errs.InvalidArgument("duplicate id must not be empty")
		}
		if d == primary {
			return errs.InvalidArgument("entity %s cannot be resolved into itself", d)
		}
		if !seen[d] {
			seen[d] = true
			dups = append(dups, d)
		}
	}

	for _, id := range append([]string{primary}, dups...) {
		if _, err := r.store.GetNode(ctx, o.Name, o.Key, id); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return fmt.Errorf("%w: %s", errs.ErrMissingEndpoint, model.NodeRef{Label: o.Name, Key: id})
			}
			return err
		}
	}

	at := r.now().UTC()
	for _, d := range dups {
		ok, err := r.store.MergeSameAs(ctx, o.Name, o.Key, primary, d, at)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", errs.ErrMissingEndpoint, model.NodeRef{Label: o.Name, Key: d})
		}
		r.metrics.MergeCommitted()
	}
	r.log.Info("Resolved entities", "type", o.Name, "primary", primary, "duplicates", dups)
	return nil
}

func (r *Resolver) objectType(typ string) (*ontology.ObjectType, error) {
	o, err := r.schema.ObjectType(typ)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.InvalidArgument("unknown entity type %q", typ)
		}
		return nil, err
	}
	return o, nil
}
