package services

import "context"

type ctxKey int

const (
	runIDKey ctxKey = iota
	stageKey
	requestIDKey
)

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key ctxKey) (string, bool) {
	v, _ := ctx.Value(key).(string)
	return v, v != ""
}

// WithRunID tags ctx with a capture run identifier (the run's timestamp).
func WithRunID(ctx context.Context, id string) context.Context {
	return withString(ctx, runIDKey, id)
}

func RunIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, runIDKey) }

// WithStage tags ctx with the pipeline stage currently executing.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, stageKey) }

// WithRequestID tags ctx with a correlation id, such as a dashboard request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, requestIDKey) }
