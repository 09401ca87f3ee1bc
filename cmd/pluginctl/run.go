// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/envstudio/envstudio/internal/config"
	"github.com/envstudio/envstudio/internal/observability"
	"github.com/envstudio/envstudio/internal/plugin"
	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// newRunCmd creates the run subcommand.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a standalone plugin host",
		Long: `Load the enabled plugins and keep them running until interrupted,
outside the desktop application. The host fires on_app_start once the
plugins are up and on_app_shutdown on the way down, so lifecycle
plugins behave as they would inside EnvStudio. Useful during plugin
development and for headless deployments.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runHost(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().Bool("metrics", false, "serve Prometheus metrics and health endpoints")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address")

	return cmd
}

// runHost starts the plugin host with injectable dependencies.
// If deps is nil, default implementations are used.
func runHost(ctx context.Context, cfg config.Config, cmd *cobra.Command, deps *RunDeps) error {
	if deps == nil {
		deps = &RunDeps{}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("starting plugin host",
		"plugins_dir", cfg.Plugins.Dir,
		"state_backend", cfg.Plugins.StateBackend,
		"host_version", cfg.App.Version,
	)

	h, err := openHost(cfg, true)
	if err != nil {
		return err
	}

	if err := h.mgr.RestoreState(ctx); err != nil {
		_ = h.Close(ctx)
		return err
	}
	if err := h.mgr.LoadEnabled(ctx); err != nil {
		_ = h.Close(ctx)
		return err
	}
	slog.Info("plugins loaded", "count", len(h.mgr.ListPlugins()))

	var obsServer ObservabilityServer
	if cfg.Observability.Enabled {
		// Ready once the enabled plugins are up.
		obsServer = deps.ObservabilityServerFactory(cfg.Observability.Addr, func() bool { return true })
		obsErrChan, err := obsServer.Start()
		if err != nil {
			_ = h.Close(ctx)
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	fireLifecycle(ctx, h.mgr, pluginsdk.HookOnAppStart, cfg.App.Version)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Plugin host started")

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown. The main context may already be cancelled, so
	// the shutdown hook fires on a fresh one.
	slog.Info("shutting down...")
	fireLifecycle(context.Background(), h.mgr, pluginsdk.HookOnAppShutdown, cfg.App.Version)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}
	if err := h.Close(shutdownCtx); err != nil {
		slog.Warn("error closing plugin host", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// fireLifecycle dispatches an app lifecycle hook and logs per-plugin
// failures without aborting.
func fireLifecycle(ctx context.Context, mgr *plugin.Manager, hook pluginsdk.Hook, hostVersion string) {
	results, err := mgr.ExecuteHook(ctx, hook, &pluginsdk.AppLifecycle{Version: hostVersion})
	if err != nil {
		slog.Warn("failed to fire lifecycle hook", "hook", hook, "error", err)
		return
	}
	for _, res := range results {
		if res.Err != nil {
			slog.Warn("lifecycle hook handler failed", "hook", hook, "plugin", res.Plugin, "error", res.Err)
		}
	}
}

// monitorServerErrors watches a server's error channel and cancels the
// run context when the server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
