package driver

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/ontograph/internal/logger"
)

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// isTransient reports whether a failed read is worth another attempt: the store
// said so, or the per-query timeout fired while the caller's context is still live.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return neo4j.IsRetryable(err)
}

// retryRead runs op up to tries times, backing off between transient failures.
func retryRead(ctx context.Context, tries int, b backoff.BackOff, op func(context.Context) (neo4j.EagerResult, error), log *logger.Logger) (neo4j.EagerResult, error) {
	if tries < 1 {
		tries = 1
	}
	attempt := 0
	return backoff.Retry(ctx, func() (neo4j.EagerResult, error) {
		attempt++
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil || !isTransient(err) {
			return neo4j.EagerResult{}, backoff.Permanent(err)
		}
		if attempt < tries {
			log.Warn("Retrying read after transient failure", "attempt", attempt, "error", err)
		}
		return neo4j.EagerResult{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(tries)))
}
