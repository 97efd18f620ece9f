// Package context carries correlation identifiers for logs and traces.
package context

import (
	"context"
	"strings"
)

type key int

const (
	requestIDKey key = iota
	correlationIDKey
	jobKey
	runIDKey
	actorKey
)

type actor struct {
	kind string
	id   string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, requestIDKey)
}

// WithCorrelationID tags every run started from one CLI invocation or HTTP trigger.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return withString(ctx, correlationIDKey, id)
}

func CorrelationIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, correlationIDKey)
}

func WithJob(ctx context.Context, job, runID string) context.Context {
	ctx = withString(ctx, jobKey, job)
	return withString(ctx, runIDKey, runID)
}

func JobFromContext(ctx context.Context) (job string, runID string) {
	return stringFrom(ctx, jobKey), stringFrom(ctx, runIDKey)
}

func WithActor(ctx context.Context, kind, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey, actor{kind: strings.TrimSpace(kind), id: strings.TrimSpace(id)})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	if a, ok := ctx.Value(actorKey).(actor); ok {
		return a.kind, a.id
	}
	return "", ""
}

func withString(ctx context.Context, k key, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, k, strings.TrimSpace(value))
}

func stringFrom(ctx context.Context, k key) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(k).(string)
	return value
}
