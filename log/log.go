package log

import (
	"context"

	"go.uber.org/zap"
)

type logCtx struct {
	context.Context

	logger  *zap.Logger
	sLogger *zap.SugaredLogger
}

type logType struct{}

func (c *logCtx) Value(k any) any {
	if _, ok := k.(logType); ok {
		return c
	}

	return c.Context.Value(k)
}

func wrap(parent context.Context, logger *zap.Logger) context.Context {
	return &logCtx{Context: parent, logger: logger, sLogger: logger.Sugar()}
}

func WithLogger(parent context.Context, logger *zap.Logger) context.Context {
	return wrap(parent, logger)
}

func lookup(ctx context.Context) *logCtx {
	if l, ok := ctx.(*logCtx); ok {
		return l
	}

	l, _ := ctx.Value(logType{}).(*logCtx)
	return l
}

// L returns logger in context, or the global zap logger if no logger is present
func L(ctx context.Context) *zap.Logger {
	if l := lookup(ctx); l != nil {
		return l.logger
	}

	return zap.L()
}

// S returns sugared version of L.
func S(ctx context.Context) *zap.SugaredLogger {
	if l := lookup(ctx); l != nil {
		return l.sLogger
	}

	return zap.S()
}

func With(ctx context.Context, tags ...zap.Field) context.Context {
	return wrap(ctx, L(ctx).With(tags...))
}

func SWith(ctx context.Context, tags ...interface{}) context.Context {
	return wrap(ctx, S(ctx).With(tags...).Desugar())
}

// Named adds a component name to the logger in ctx.
func Named(ctx context.Context, name string) context.Context {
	return wrap(ctx, L(ctx).Named(name))
}
