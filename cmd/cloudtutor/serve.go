package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudtutor/cloudtutor/internal/auth"
	"github.com/cloudtutor/cloudtutor/internal/httpapi"
	"github.com/cloudtutor/cloudtutor/internal/ratelimit"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP tutoring API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.Bool("offline", false, "Serve with deterministic stubs only, no model calls")
	f.StringSlice("cors-origin", nil, "Allowed CORS origin (repeatable)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	logger := setupLogging(v)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, v, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	server := httpapi.New(httpapi.Config{
		Orchestrator:        rt.online,
		OfflineOrchestrator: rt.offline,
		Offline:             rt.offlineOnly,
		Store:               rt.store,
		Authorizer:          auth.FromEnv(),
		Limiter:             ratelimit.FromEnv(),
		AllowedOrigins:      v.GetStringSlice("cors-origin"),
		Logger:              logger,
	})

	httpServer := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "offline", rt.offlineOnly)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
