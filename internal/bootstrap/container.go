package bootstrap

import (
	"context"

	adksession "google.golang.org/adk/session"

	"edinsights/internal/adapters/ai"
	"edinsights/internal/adapters/config"
	pgclient "edinsights/internal/adapters/postgres"
	"edinsights/internal/agents"
	"edinsights/internal/api"
	"edinsights/internal/api/chat"
	"edinsights/internal/api/health"
	"edinsights/internal/attachments"
	"edinsights/internal/formatter"
	"edinsights/internal/metrics"
	"edinsights/internal/repository/warehouse"
	"edinsights/internal/tools"
	"edinsights/internal/tools/analysis"
	"edinsights/internal/tools/data"
	"edinsights/internal/tools/shared"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
	"edinsights/pkg/templates"
)

// Version is stamped at build time.
var Version = "dev"

// Container holds all application dependencies in initialization order.
type Container struct {
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	PG *pgclient.Client

	AIRegistry   *ai.ProviderRegistry
	ToolRegistry *tools.Registry

	DataService     *data.Service
	AnalysisService *analysis.Service
	Attachments     *attachments.Service
	Orchestrator    *agents.Orchestrator

	Server *api.Server
}

// Build wires the full dependency graph: config, warehouse, AI providers,
// tools, agents, orchestrator, and the HTTP server.
func Build(cfg *config.Config, log *logger.Logger, tracker errors.Tracker) (*Container, error) {
	c := &Container{
		Config:       cfg,
		Log:          log,
		ErrorTracker: tracker,
	}

	metrics.Init()

	pg, err := pgclient.NewClient(cfg.Warehouse)
	if err != nil {
		return nil, errors.Wrap(err, "connect warehouse")
	}
	c.PG = pg
	log.Info("Warehouse connection established")
	metrics.RegisterWarehouseCollector(metrics.NewWarehouseCollector(log, pg.DB()))

	schoolRepo := warehouse.NewSchoolRepository(pg.DB(), cfg.Warehouse.QueryTimeout)
	c.DataService = data.NewService(schoolRepo, log)
	c.AnalysisService = analysis.NewService(log)
	c.Attachments = attachments.NewService(cfg.Attachments, log)

	aiRegistry, err := ai.BuildRegistry(cfg.AI)
	if err != nil {
		return nil, errors.Wrap(err, "build AI providers")
	}
	c.AIRegistry = aiRegistry

	c.ToolRegistry = tools.NewRegistry()
	deps := shared.Deps{SchoolRepo: schoolRepo, Log: log}
	tools.RegisterAllTools(c.ToolRegistry, deps, c.DataService, c.AnalysisService)

	orchestrator, err := buildOrchestrator(cfg, c, log)
	if err != nil {
		return nil, err
	}
	c.Orchestrator = orchestrator

	chatHandler := chat.New(orchestrator, c.Attachments, log)
	healthHandler := health.New(log, schoolRepo, cfg.App.Name, Version)
	c.Server = api.NewServer(cfg.Server, api.ServerDeps{
		Chat:        chatHandler,
		Health:      healthHandler,
		ServiceName: cfg.App.Name,
		Version:     Version,
	}, log)

	log.Info("Container built")
	return c, nil
}

// buildOrchestrator creates the agents and the runner per role, all sharing
// one rate limiter and cost tracker.
func buildOrchestrator(cfg *config.Config, c *Container, log *logger.Logger) (*agents.Orchestrator, error) {
	factory, err := agents.NewFactory(agents.FactoryDeps{
		AIRegistry:   c.AIRegistry,
		ToolRegistry: c.ToolRegistry,
		Templates:    templates.Get(),
		Maps:         cfg.Maps,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create agent factory")
	}

	registry, err := factory.CreateDefaultRegistry(cfg.AI.DefaultProvider, cfg.AI.DefaultModel)
	if err != nil {
		return nil, errors.Wrap(err, "create agents")
	}

	limiter := ai.BuildRateLimiter(cfg.AI)
	costTracker := agents.NewCostTracker()
	sessionService := adksession.InMemoryService()

	runners := make(map[agents.AgentType]*agents.AgentRunner)
	for _, agentType := range registry.List() {
		entry, _ := registry.Get(agentType)
		runner, err := agents.NewAgentRunner(entry, cfg.Agents, limiter, costTracker, sessionService)
		if err != nil {
			return nil, errors.Wrapf(err, "create runner for %s", agentType)
		}
		runners[agentType] = runner
	}

	fmtr := formatter.New(cfg.Maps, log)
	return agents.NewOrchestrator(cfg.Agents, runners, c.DataService, c.AnalysisService, fmtr, templates.Get())
}

// Start runs the HTTP server. Blocks until the server stops.
func (c *Container) Start() error {
	return c.Server.Start()
}

// Stop shuts everything down in reverse order.
func (c *Container) Stop(ctx context.Context) {
	if c.Server != nil {
		if err := c.Server.Shutdown(ctx); err != nil {
			c.Log.Errorf("Server shutdown failed: %v", err)
		}
	}
	if c.PG != nil {
		if err := c.PG.Close(); err != nil {
			c.Log.Errorf("Warehouse close failed: %v", err)
		}
	}
	if c.ErrorTracker != nil {
		if err := c.ErrorTracker.Flush(ctx); err != nil {
			c.Log.Warnf("Error tracker flush failed: %v", err)
		}
	}
}
