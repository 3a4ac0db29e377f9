// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/rag-filesearch/pkg/types"
)

// wait polls op every pollInterval until it is done. Exceeding pollTimeout
// yields types.ErrTimeout; a cancelled context yields the context error.
func (o *Orchestrator) wait(ctx context.Context, op types.Operation) (types.Operation, error) {
	if op.Done {
		return op, nil
	}
	if op.Name == "" {
		return op, fmt.Errorf("%w: upload returned a pending operation without a name", types.ErrRemoteRequestFailed)
	}

	interval := positiveOr(o.pollInterval, types.DefaultPollInterval)
	timeout := positiveOr(o.pollTimeout, types.DefaultPollTimeout)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for polls := 1; ; polls++ {
		select {
		case <-ctx.Done():
			return op, fmt.Errorf("polling %s: %w", op.Name, ctx.Err())
		case <-deadline.C:
			return op, fmt.Errorf("%w: %s not done after %v", types.ErrTimeout, op.Name, timeout)
		case <-ticker.C:
		}

		next, err := o.uploader.GetOperation(ctx, op.Name)
		if err != nil {
			return op, err
		}
		o.logger.Debug("operation status",
			zap.String("operation", op.Name),
			zap.Bool("done", next.Done),
			zap.Int("poll", polls),
			zap.Duration("elapsed", time.Since(start)))
		if next.Done {
			if next.Name == "" {
				next.Name = op.Name
			}
			return next, nil
		}
	}
}

// positiveOr returns d, or def when d is not positive. time.NewTicker
// panics on a non-positive interval.
func positiveOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
