package llm

import "context"

type contextKey string

const stageKey contextKey = "llm_stage"

// WithStage attaches a pipeline stage label to the context so the event
// log can attribute each model call to the stage that issued it.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// StageFrom extracts the stage label from the context.
func StageFrom(ctx context.Context) string {
	if v, ok := ctx.Value(stageKey).(string); ok {
		return v
	}
	return "unknown"
}
