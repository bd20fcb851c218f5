package llm

import (
	"context"
	"log/slog"
	"time"
)

// CallEvent captures one model invocation for the event log.
type CallEvent struct {
	Provider     string
	Model        string
	Stage        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// EventSink receives model call events. The relational state store
// implements this when a database is configured; otherwise events go to
// the structured log only.
type EventSink interface {
	RecordModelCall(ctx context.Context, ev CallEvent) error
}

// LoggingProvider records every model call as a structured log line and,
// when a sink is present, as a durable event.
type LoggingProvider struct {
	inner  Provider
	sink   EventSink
	logger *slog.Logger
}

// WithLogging wraps a Provider with call logging. sink may be nil.
func WithLogging(p Provider, sink EventSink, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProvider{inner: p, sink: sink, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	stage := StageFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	ev := CallEvent{
		Provider:  l.inner.ModelID(),
		Model:     l.inner.ModelID(),
		Stage:     stage,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if resp != nil {
		ev.Model = resp.Model
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	l.logger.Debug("model_call",
		"stage", ev.Stage,
		"model", ev.Model,
		"latency_ms", ev.LatencyMs,
		"input_tokens", ev.InputTokens,
		"output_tokens", ev.OutputTokens,
		"success", ev.Success,
	)

	// A sink failure must never fail the request.
	if l.sink != nil {
		if sinkErr := l.sink.RecordModelCall(ctx, ev); sinkErr != nil {
			l.logger.Warn("model_call_event_dropped", "error", sinkErr)
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
