package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphDriver is the narrow surface the store needs from a bolt connection.
// ExecuteQuery is routed to readers and may be retried; ExecuteWrite is routed
// to the leader and is never retried here.
type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	ExecuteWrite(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}
