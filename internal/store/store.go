// Package store is the graph store port. Every structural token that reaches
// query text passes through Builder; data values always travel as parameters.
package store

import (
	"context"
	"time"

	"github.com/agenthands/ontograph/internal/core/model"
)

// NodeRecord is one node to MERGE: its key value and the properties to set.
type NodeRecord struct {
	Key        string
	Properties map[string]any
}

// EdgeRecord is one relationship row. Index identifies the row within its batch
// so that rows dropped for a missing endpoint can be reported.
type EdgeRecord struct {
	Index      int
	FromKey    string
	ToKey      string
	Properties map[string]any
}

// EdgeBatch is a set of relationships of one type between two fixed endpoint labels.
type EdgeBatch struct {
	Type         string
	FromLabel    string
	FromKeyField string
	ToLabel      string
	ToKeyField   string
	Rows         []EdgeRecord
}

type Store interface {
	// EnsureConstraints creates a uniqueness constraint on every object type key.
	EnsureConstraints(ctx context.Context) error
	// UpsertNodes MERGEs nodes by (label, key) and returns how many were written.
	UpsertNodes(ctx context.Context, label, keyField string, rows []NodeRecord) (int, error)
	// UpsertEdges MERGEs relationships whose endpoints both exist and returns
	// the indices of the rows that were written.
	UpsertEdges(ctx context.Context, batch EdgeBatch) ([]int, error)
	// GetNode returns the node or an errs.NotFoundError.
	GetNode(ctx context.Context, label, keyField, key string) (*model.StoredNode, error)
	// Neighborhood returns every relationship on an undirected path of at most
	// depth hops from the start node, each relationship once.
	Neighborhood(ctx context.Context, label, keyField, key string, depth int) ([]model.Hop, error)
	// CandidateBlocks groups nodes of label sharing a non-null blockField value.
	// Only groups with two or more members are returned.
	CandidateBlocks(ctx context.Context, label, blockField string) ([][]model.StoredNode, error)
	// MergeSameAs MERGEs a SAME_AS edge from primary to duplicate. It reports
	// false when either node is absent.
	MergeSameAs(ctx context.Context, label, keyField, primary, duplicate string, resolvedAt time.Time) (bool, error)
	// SameAsNeighbors returns, for each key, the keys linked to it by SAME_AS in
	// either direction.
	SameAsNeighbors(ctx context.Context, label, keyField string, keys []string) (map[string][]string, error)
	CountNodes(ctx context.Context, label string) (int64, error)
	CountEdges(ctx context.Context, relType string) (int64, error)
	Close(ctx context.Context) error
}
