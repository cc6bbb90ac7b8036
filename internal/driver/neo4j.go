package driver

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/logger"
	"github.com/agenthands/ontograph/internal/metrics"
)

type Options struct {
	URI            string
	User           string
	Password       string
	Database       string
	MaxPoolSize    int
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	// ReadRetries is the number of retries after the first read attempt.
	ReadRetries    int
}

// Neo4jDriver talks bolt to Neo4j or any wire-compatible store such as Memgraph.
type Neo4jDriver struct {
	Driver neo4j.DriverWithContext

	database     string
	queryTimeout time.Duration
	readRetries  int
	newBackOff   func() backoff.BackOff
	log          *logger.Logger
	metrics      *metrics.Metrics
}

func NewNeo4jDriver(ctx context.Context, opts Options, log *logger.Logger, m *metrics.Metrics) (*Neo4jDriver, error) {
	if log == nil {
		log = logger.NewNop()
	}
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.User, opts.Password, ""),
		func(c *neo4jconfig.Config) {
			if opts.MaxPoolSize > 0 {
				c.MaxConnectionPoolSize = opts.MaxPoolSize
			}
			if opts.ConnectTimeout > 0 {
				c.SocketConnectTimeout = opts.ConnectTimeout
			}
		})
	if err != nil {
		return nil, errs.Store("create driver", err)
	}

	d := &Neo4jDriver{
		Driver:       driver,
		database:     opts.Database,
		queryTimeout: opts.QueryTimeout,
		readRetries:  opts.ReadRetries,
		newBackOff:   defaultBackOff,
		log:          log.With("component", "driver"),
		metrics:      m,
	}
	if err := d.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	d.log.Info("Connected to graph store", "uri", opts.URI, "database", opts.Database, "pool", opts.MaxPoolSize)
	return d, nil
}

func (d *Neo4jDriver) VerifyConnectivity(ctx context.Context) error {
	if err := d.Driver.VerifyConnectivity(ctx); err != nil {
		return errs.Store("verify connectivity", err)
	}
	return nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	start := time.Now()
	res, err := retryRead(ctx, d.readRetries+1, d.newBackOff(), func(ctx context.Context) (neo4j.EagerResult, error) {
		return d.run(ctx, query, params, neo4j.ExecuteQueryWithReadersRouting())
	}, d.log)
	d.metrics.ObserveQuery("read", start, err)
	if err != nil {
		return neo4j.EagerResult{}, errs.Store("read query", err)
	}
	return res, nil
}

func (d *Neo4jDriver) ExecuteWrite(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	start := time.Now()
	res, err := d.run(ctx, query, params, neo4j.ExecuteQueryWithWritersRouting())
	d.metrics.ObserveQuery("write", start, err)
	if err != nil {
		return neo4j.EagerResult{}, errs.Store("write query", err)
	}
	return res, nil
}

func (d *Neo4jDriver) run(ctx context.Context, query string, params map[string]interface{}, routing neo4j.ExecuteQueryConfigurationOption) (neo4j.EagerResult, error) {
	if d.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.queryTimeout)
		defer cancel()
	}
	opts := []neo4j.ExecuteQueryConfigurationOption{routing}
	if d.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.database))
	}
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return neo4j.EagerResult{}, err
	}
	return *result, nil
}
