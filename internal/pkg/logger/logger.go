// Package logger carries request- and job-scoped zap loggers through
// contexts via ctxzap.
package logger

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// WithAction returns a context whose logger tags every entry with the
// named flow, so all lines of one background pass group together.
func WithAction(ctx context.Context, action string) context.Context {
	scoped := ctxzap.Extract(ctx).With(zap.String("action", action))
	return ctxzap.ToContext(ctx, scoped)
}
