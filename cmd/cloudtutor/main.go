package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cloudtutor/cloudtutor/internal/doccache"
	"github.com/cloudtutor/cloudtutor/internal/grounding"
	"github.com/cloudtutor/cloudtutor/internal/llm"
	"github.com/cloudtutor/cloudtutor/internal/pipeline"
	"github.com/cloudtutor/cloudtutor/internal/state"
	"github.com/cloudtutor/cloudtutor/internal/toolpolicy"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cloudtutor",
		Short: "AZ-900 exam tutor powered by LLM agents",
		Long: "Cloudtutor runs adaptive AZ-900 study sessions: it plans around your\n" +
			"weak domains, generates an exam, diagnoses misconceptions, grounds\n" +
			"explanations in Microsoft Learn and coaches the follow-up drills.",
	}

	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	quiz := quizCmd()
	root.AddCommand(serveCmd(), quiz, stateCmd(), tokenCmd(), versionCmd())

	// Bare `cloudtutor` starts a quiz.
	root.RunE = quiz.RunE
	root.Flags().AddFlagSet(quiz.Flags())

	return root
}

// viperForCmd binds a command's flags and environment to a fresh viper
// instance so that flags, CLOUDTUTOR_* variables and an optional config
// file all resolve through one lookup.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.InheritedFlags())

	v.SetEnvPrefix("CLOUDTUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("cloudtutor")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/cloudtutor")
	v.AddConfigPath("/etc/cloudtutor")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	}

	return v
}

func setupLogging(v *viper.Viper) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// runtime holds the wired dependency graph shared by serve and quiz.
type runtime struct {
	store   state.Store
	online  *pipeline.Orchestrator
	offline *pipeline.Orchestrator

	// offlineOnly is true when no model provider is available, either by
	// request or because no API key is configured.
	offlineOnly bool

	cache  *doccache.Cache
	logger *slog.Logger
}

func (rt *runtime) Close() {
	if rt.cache != nil {
		if err := rt.cache.Close(); err != nil {
			rt.logger.Warn("closing document cache", "error", err)
		}
	}
	if err := rt.store.Close(); err != nil {
		rt.logger.Warn("closing state store", "error", err)
	}
}

func buildRuntime(ctx context.Context, v *viper.Viper, logger *slog.Logger) (*runtime, error) {
	store, err := state.Open(ctx, state.ConfigFromEnv(), logger)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	rt := &runtime{store: store, offlineOnly: v.GetBool("offline"), logger: logger}

	var provider llm.Provider
	var verifier *grounding.Verifier
	if !rt.offlineOnly {
		cfg := llm.ConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			if discovered, ok := llm.DiscoverConfig(); ok {
				cfg = discovered
			} else {
				logger.Warn("no model provider configured, running offline", "error", err)
				rt.offlineOnly = true
			}
		}
		if !rt.offlineOnly {
			// The relational store doubles as the model-call audit sink.
			var sink llm.EventSink
			if sqlStore, ok := store.(*state.SQLStore); ok {
				sink = sqlStore
			}

			provider, err = llm.NewProvider(ctx, cfg, sink, logger)
			if err != nil {
				store.Close()
				return nil, fmt.Errorf("initialize model provider: %w", err)
			}

			backend, err := doccache.NewBackend(ctx, doccache.ConfigFromEnv())
			if err != nil {
				store.Close()
				return nil, fmt.Errorf("open document cache: %w", err)
			}
			rt.cache = doccache.New(backend, doccache.HTTPFetcher(nil))

			verifier = &grounding.Verifier{
				Provider: provider,
				Gate:     toolpolicy.NewGate(),
				Cache:    rt.cache,
				Searcher: grounding.DefaultIndex(),
				Logger:   logger,
			}
		}
	}

	rt.online = pipeline.New(pipeline.Config{
		Provider: provider,
		Verifier: verifier,
		Store:    store,
		Offline:  rt.offlineOnly,
		Logger:   logger,
	})
	rt.offline = pipeline.New(pipeline.Config{Store: store, Offline: true, Logger: logger})
	return rt, nil
}
