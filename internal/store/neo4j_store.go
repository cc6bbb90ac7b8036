package store

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/ontology"
	"github.com/agenthands/ontograph/internal/driver"
	"github.com/agenthands/ontograph/internal/logger"
)

type Neo4jStore struct {
	driver  driver.GraphDriver
	schema  *ontology.Schema
	builder *Builder
	log     *logger.Logger
}

func NewNeo4jStore(d driver.GraphDriver, schema *ontology.Schema, log *logger.Logger) *Neo4jStore {
	if log == nil {
		log = logger.NewNop()
	}
	return &Neo4jStore{
		driver:  d,
		schema:  schema,
		builder: NewBuilder(schema),
		log:     log.With("component", "store"),
	}
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) EnsureConstraints(ctx context.Context) error {
	for _, name := range s.schema.Labels() {
		o := s.schema.Objects[name]
		q, err := s.nodeTokens(o.Name, o.Key)
		if err != nil {
			return err
		}
		query := fmt.Sprintf(ensureConstraintQuery, q[0], q[1])
		if _, err := s.driver.ExecuteWrite(ctx, query, nil); err != nil {
			// Memgraph and older servers use a different constraint syntax.
			s.log.Warn("Failed to create constraint", "label", o.Name, "key", o.Key, "error", err)
		}
	}
	return nil
}

func (s *Neo4jStore) UpsertNodes(ctx context.Context, label, keyField string, rows []NodeRecord) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	q, err := s.nodeTokens(label, keyField)
	if err != nil {
		return 0, err
	}
	params := make([]map[string]any, len(rows))
	for i, r := range rows {
		params[i] = map[string]any{"key": r.Key, "props": r.Properties}
	}
	res, err := s.driver.ExecuteWrite(ctx, fmt.Sprintf(upsertNodesQuery, q[0], q[1]), map[string]interface{}{"rows": params})
	if err != nil {
		return 0, errs.Store("upsert nodes", err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	return int(asInt64(get(res.Records[0], "written"))), nil
}

func (s *Neo4jStore) UpsertEdges(ctx context.Context, batch EdgeBatch) ([]int, error) {
	if len(batch.Rows) == 0 {
		return nil, nil
	}
	from, err := s.nodeTokens(batch.FromLabel, batch.FromKeyField)
	if err != nil {
		return nil, err
	}
	to, err := s.nodeTokens(batch.ToLabel, batch.ToKeyField)
	if err != nil {
		return nil, err
	}
	rel, err := s.builder.RelType(batch.Type)
	if err != nil {
		return nil, err
	}

	params := make([]map[string]any, len(batch.Rows))
	for i, r := range batch.Rows {
		params[i] = map[string]any{"idx": r.Index, "from": r.FromKey, "to": r.ToKey, "props": r.Properties}
	}
	query := fmt.Sprintf(upsertEdgesQuery, from[0], from[1], to[0], to[1], rel)
	res, err := s.driver.ExecuteWrite(ctx, query, map[string]interface{}{"rows": params})
	if err != nil {
		return nil, errs.Store("upsert edges", err)
	}
	written := make([]int, 0, len(res.Records))
	for _, rec := range res.Records {
		written = append(written, int(asInt64(get(rec, "idx"))))
	}
	return written, nil
}

func (s *Neo4jStore) GetNode(ctx context.Context, label, keyField, key string) (*model.StoredNode, error) {
	q, err := s.nodeTokens(label, keyField)
	if err != nil {
		return nil, err
	}
	res, err := s.driver.ExecuteQuery(ctx, fmt.Sprintf(getNodeQuery, q[0], q[1]), map[string]interface{}{"key": key})
	if err != nil {
		return nil, errs.Store("get node", err)
	}
	if len(res.Records) == 0 {
		return nil, &errs.NotFoundError{Kind: "entity", Name: model.NodeRef{Label: label, Key: key}.ID()}
	}
	rec := res.Records[0]
	return &model.StoredNode{
		ElementID:  asString(get(rec, "id")),
		Labels:     asStrings(get(rec, "labels")),
		Properties: asMap(get(rec, "props")),
	}, nil
}

func (s *Neo4jStore) Neighborhood(ctx context.Context, label, keyField, key string, depth int) ([]model.Hop, error) {
	q, err := s.nodeTokens(label, keyField)
	if err != nil {
		return nil, err
	}
	d, err := s.builder.Depth(depth)
	if err != nil {
		return nil, err
	}
	res, err := s.driver.ExecuteQuery(ctx, fmt.Sprintf(neighborhoodQuery, q[0], q[1], d), map[string]interface{}{"key": key})
	if err != nil {
		return nil, errs.Store("neighborhood", err)
	}
	hops := make([]model.Hop, 0, len(res.Records))
	for _, rec := range res.Records {
		hops = append(hops, model.Hop{
			Type:       asString(get(rec, "type")),
			Properties: asMap(get(rec, "props")),
			Start: model.StoredNode{
				ElementID:  asString(get(rec, "start_id")),
				Labels:     asStrings(get(rec, "start_labels")),
				Properties: asMap(get(rec, "start_props")),
			},
			End: model.StoredNode{
				ElementID:  asString(get(rec, "end_id")),
				Labels:     asStrings(get(rec, "end_labels")),
				Properties: asMap(get(rec, "end_props")),
			},
		})
	}
	return hops, nil
}

func (s *Neo4jStore) CandidateBlocks(ctx context.Context, label, blockField string) ([][]model.StoredNode, error) {
	l, err := s.builder.Label(label)
	if err != nil {
		return nil, err
	}
	f, err := s.builder.Field(blockField)
	if err != nil {
		return nil, err
	}
	res, err := s.driver.ExecuteQuery(ctx, fmt.Sprintf(candidateBlocksQuery, l, f, f), nil)
	if err != nil {
		return nil, errs.Store("candidate blocks", err)
	}
	var blocks [][]model.StoredNode
	for _, rec := range res.Records {
		members, _ := get(rec, "members").([]any)
		block := make([]model.StoredNode, 0, len(members))
		for _, m := range members {
			mm := asMap(m)
			block = append(block, model.StoredNode{
				ElementID:  asString(mm["id"]),
				Labels:     asStrings(mm["labels"]),
				Properties: asMap(mm["props"]),
			})
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func (s *Neo4jStore) MergeSameAs(ctx context.Context, label, keyField, primary, duplicate string, resolvedAt time.Time) (bool, error) {
	q, err := s.nodeTokens(label, keyField)
	if err != nil {
		return false, err
	}
	params := map[string]interface{}{
		"primary":     primary,
		"duplicate":   duplicate,
		"resolved_at": resolvedAt.UTC().Format(time.RFC3339),
		"status":      model.ResolvedStatus,
	}
	res, err := s.driver.ExecuteWrite(ctx, fmt.Sprintf(mergeSameAsQuery, q[0], q[1], q[0], q[1]), params)
	if err != nil {
		return false, errs.Store("merge same_as", err)
	}
	if len(res.Records) == 0 {
		return false, nil
	}
	return asInt64(get(res.Records[0], "merged")) > 0, nil
}

func (s *Neo4jStore) SameAsNeighbors(ctx context.Context, label, keyField string, keys []string) (map[string][]string, error) {
	out := make(map[string][]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	q, err := s.nodeTokens(label, keyField)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(sameAsNeighborsQuery, q[0], q[1], q[0], q[1])
	res, err := s.driver.ExecuteQuery(ctx, query, map[string]interface{}{"keys": keys})
	if err != nil {
		return nil, errs.Store("same_as neighbors", err)
	}
	for _, rec := range res.Records {
		out[asString(get(rec, "key"))] = asStrings(get(rec, "neighbors"))
	}
	return out, nil
}

func (s *Neo4jStore) CountNodes(ctx context.Context, label string) (int64, error) {
	l, err := s.builder.Label(label)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, fmt.Sprintf(countNodesQuery, l))
}

func (s *Neo4jStore) CountEdges(ctx context.Context, relType string) (int64, error) {
	r, err := s.builder.RelType(relType)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, fmt.Sprintf(countEdgesQuery, r))
}

func (s *Neo4jStore) count(ctx context.Context, query string) (int64, error) {
	res, err := s.driver.ExecuteQuery(ctx, query, nil)
	if err != nil {
		return 0, errs.Store("count", err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	return asInt64(get(res.Records[0], "c")), nil
}

// nodeTokens quotes a label and its key field.
func (s *Neo4jStore) nodeTokens(label, keyField string) ([2]string, error) {
	l, err := s.builder.Label(label)
	if err != nil {
		return [2]string{}, err
	}
	k, err := s.builder.Field(keyField)
	if err != nil {
		return [2]string{}, err
	}
	return [2]string{l, k}, nil
}
