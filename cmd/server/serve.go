package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-mcp/internal/scheduler"
	"github.com/mamadbah2/dairy-mcp/internal/server/handlers"
	"github.com/mamadbah2/dairy-mcp/internal/server/router"
	"github.com/mamadbah2/dairy-mcp/internal/service/tools"
	"github.com/mamadbah2/dairy-mcp/pkg/logger"
)

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over streamable HTTP",
		Long: `Serve the dairy nutrition tools over the MCP streamable HTTP transport.

Callers may pass their own backend API key in the X-API-Key header or as a
bearer token. Requests without one use the process credentials from
FEED_API_KEY or FEED_API_EMAIL and FEED_API_PIN.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			defer a.close(context.Background())
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	var fallback tools.Backend
	if a.client != nil {
		fallback = a.client
	}

	if a.catalog != nil {
		sched := scheduler.NewScheduler(a.cfg.Catalog.RefreshCron, a.catalog, logger.Named(a.logger, "scheduler"))
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	mcpHandler := handlers.NewMCPHandler(fallback, a.newBackend, a.buildServer, logger.Named(a.logger, "handlers.mcp"))
	engine := router.New(mcpHandler, router.Options{
		MCPPath:  a.cfg.Server.MCPPath,
		Metrics:  a.metrics,
		Registry: a.registry,
		Logger:   logger.Named(a.logger, "router"),
	})

	srv := &http.Server{
		Addr:        ":" + a.cfg.Server.Port,
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("port", a.cfg.Server.Port), zap.String("mcp_path", a.cfg.Server.MCPPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.logger.Error("http server crashed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
