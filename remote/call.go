package remote

import (
	"context"
	"time"

	"github.com/lexandro/workspace-mcp/metrics"
)

// Call runs one collaborator call, records it and wraps a failure as a
// CallError. Callers must not hold their own locks across it.
func Call(ctx context.Context, op, path string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	metrics.RecordRemoteCall(op, time.Since(start), err)
	return Wrap(op, path, err)
}

// CallResult is Call for calls that return a value.
func CallResult[T any](ctx context.Context, op, path string, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := fn(ctx)
	metrics.RecordRemoteCall(op, time.Since(start), err)
	return v, Wrap(op, path, err)
}
