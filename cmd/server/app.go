package main

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-mcp/internal/config"
	"github.com/mamadbah2/dairy-mcp/internal/metrics"
	"github.com/mamadbah2/dairy-mcp/internal/repository/mongodb"
	"github.com/mamadbah2/dairy-mcp/internal/repository/sheets"
	"github.com/mamadbah2/dairy-mcp/internal/service/audit"
	"github.com/mamadbah2/dairy-mcp/internal/service/catalog"
	"github.com/mamadbah2/dairy-mcp/internal/service/tools"
	"github.com/mamadbah2/dairy-mcp/pkg/clients/nutrition"
	"github.com/mamadbah2/dairy-mcp/pkg/logger"
)

// app holds the components shared by the serve and stdio commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *nutrition.Client
	catalog  *catalog.Service
	audit    *audit.Service
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	closers  []func(context.Context) error
}

func newApp(ctx context.Context, envFile string) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	baseLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(baseLogger)

	a := &app{cfg: cfg, logger: baseLogger}

	if cfg.Backend.HasCredentials() {
		a.client, err = a.newClient(nutrition.Credentials{
			APIKey: cfg.Backend.APIKey,
			Email:  cfg.Backend.Email,
			PIN:    cfg.Backend.PIN,
		})
		if err != nil {
			return nil, err
		}
		a.catalog = catalog.NewService(a.client, logger.Named(baseLogger, "svc.catalog"))
		baseLogger.Info("backend credentials configured", zap.String("mode", a.client.Mode().String()))
	} else {
		baseLogger.Warn("no backend credentials configured, requests must carry an api key")
	}

	a.audit = audit.NewService(logger.Named(baseLogger, "svc.audit"))
	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			return nil, fmt.Errorf("init mongodb repository: %w", err)
		}
		a.audit.AddSink("mongodb", audit.FromMongo(mongoRepo))
		a.closers = append(a.closers, mongoRepo.Close)
	}
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			return nil, fmt.Errorf("init sheets repository: %w", err)
		}
		a.audit.AddSink("sheets", audit.FromSheet(sheetsRepo))
	}

	if cfg.Server.MetricsEnabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.metrics = metrics.New(a.registry)
	}

	return a, nil
}

func (a *app) newClient(creds nutrition.Credentials) (*nutrition.Client, error) {
	return nutrition.New(nutrition.Config{
		BaseURL:     a.cfg.Backend.BaseURL,
		Credentials: creds,
		Logger:      logger.Named(a.logger, "client.nutrition"),
	})
}

// newBackend binds a client to an API key supplied by an HTTP caller.
func (a *app) newBackend(apiKey string) (tools.Backend, error) {
	return a.newClient(nutrition.Credentials{APIKey: apiKey})
}

func (a *app) buildServer(backend tools.Backend) *mcp.Server {
	deps := tools.Deps{
		Recorder: a.audit,
		Metrics:  a.metrics,
		Logger:   logger.Named(a.logger, "svc.tools"),
		Version:  version,
	}
	if a.catalog != nil {
		deps.Catalog = a.catalog
	}
	return tools.NewServer(backend, deps)
}

func (a *app) close(ctx context.Context) {
	a.audit.Wait()
	for _, closeFn := range a.closers {
		if err := closeFn(ctx); err != nil {
			a.logger.Error("failed to close resource", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
