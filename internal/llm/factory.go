package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// NewProvider creates a Provider from configuration, wrapped with logging
// and retry middleware. sink may be nil when no event store is configured.
func NewProvider(ctx context.Context, cfg Config, sink EventSink, logger *slog.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// Wrap order: caller → timeout → retry → logging → base. The
	// timeout sits outermost so one deadline covers all retry attempts.
	logged := WithLogging(base, sink, logger)
	retried := WithRetry(logged, cfg.Retry)

	return WithTimeout(retried, cfg.Timeout), nil
}
