package agents

import (
	"context"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	adkmodel "google.golang.org/adk/model"
	adktool "google.golang.org/adk/tool"

	"edinsights/internal/adapters/ai"
	"edinsights/internal/adapters/config"
	"edinsights/internal/domain/insight"
	"edinsights/internal/domain/school"
	"edinsights/internal/tools"
	"edinsights/pkg/errors"
	"edinsights/pkg/templates"
)

// FactoryDeps gathers external dependencies needed to instantiate agents.
type FactoryDeps struct {
	AIRegistry   *ai.ProviderRegistry
	ToolRegistry *tools.Registry
	Templates    *templates.Registry
	Maps         config.MapsConfig
}

// Factory creates configured agents. Tool access is restricted by role: each
// agent receives exactly the tools of its configured catalog category and
// nothing else, so the data agent can never analyze and the insights agent
// can never query the warehouse.
type Factory struct {
	aiRegistry   *ai.ProviderRegistry
	toolRegistry *tools.Registry
	templates    *templates.Registry
	maps         config.MapsConfig
}

// NewFactory builds an agent factory with required dependencies.
func NewFactory(deps FactoryDeps) (*Factory, error) {
	if deps.ToolRegistry == nil {
		return nil, errors.New("tool registry is required")
	}
	if deps.AIRegistry == nil {
		return nil, errors.New("AI provider registry is required")
	}
	if deps.Templates == nil {
		deps.Templates = templates.Get()
	}

	return &Factory{
		aiRegistry:   deps.AIRegistry,
		toolRegistry: deps.ToolRegistry,
		templates:    deps.Templates,
		maps:         deps.Maps,
	}, nil
}

// CreateAgent constructs a single ADK agent instance from a config.
func (f *Factory) CreateAgent(cfg AgentConfig) (agent.Agent, *ai.ModelInfo, error) {
	modelInfo, err := f.aiRegistry.ResolveModel(context.Background(), cfg.AIProvider, cfg.Model)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "resolve model %s/%s", cfg.AIProvider, cfg.Model)
	}

	llmModel := adkmodel.BasicModel{
		ID:         modelInfo.Name,
		ProviderID: cfg.AIProvider,
		Tokens:     modelInfo.MaxTokens,
	}

	agentTools, err := f.toolsForAgent(cfg)
	if err != nil {
		return nil, nil, err
	}

	instruction, err := f.buildInstruction(cfg)
	if err != nil {
		return nil, nil, err
	}

	ag, err := llmagent.New(llmagent.Config{
		Name:        cfg.Name,
		Description: cfg.Description,
		Model:       llmModel,
		Tools:       agentTools,
		Instruction: instruction,
		OutputKey:   cfg.OutputKey,
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create agent %s", cfg.Name)
	}

	return ag, &modelInfo, nil
}

// CreateDefaultRegistry builds and registers the four fixed agents.
func (f *Factory) CreateDefaultRegistry(provider, model string) (*Registry, error) {
	reg := NewRegistry()

	for _, cfg := range DefaultAgentConfigs {
		cfg.AIProvider = provider
		cfg.Model = model
		ag, modelInfo, err := f.CreateAgent(cfg)
		if err != nil {
			return nil, err
		}
		reg.Register(cfg.Type, Entry{Agent: ag, Config: cfg, ModelInfo: modelInfo})
	}

	return reg, nil
}

// toolsForAgent resolves the tools the agent is allowed to hold. A role
// without a tool category holds none.
func (f *Factory) toolsForAgent(cfg AgentConfig) ([]adktool.Tool, error) {
	if cfg.ToolCategory == "" {
		return nil, nil
	}

	agentTools := tools.ToolsForCategory(f.toolRegistry, cfg.ToolCategory)
	if len(agentTools) == 0 {
		return nil, errors.Newf("no tools registered for category %q (agent %s)", cfg.ToolCategory, cfg.Name)
	}
	return agentTools, nil
}

// buildInstruction renders the static system instruction for an agent. The
// synthesizer's prompt depends on per-turn data and is rendered by the
// orchestrator instead.
func (f *Factory) buildInstruction(cfg AgentConfig) (string, error) {
	if cfg.PromptTemplate == "" || cfg.Type == AgentSynthesizer {
		return "", nil
	}

	data := map[string]interface{}{
		"AgentName":    cfg.Name,
		"MaxToolCalls": cfg.MaxToolCalls,
	}
	if cfg.Type == AgentInterpreter {
		data["QueryKinds"] = queryKindNames()
		data["SortKeys"] = school.SortKeys()
		data["AnalysisKinds"] = analysisKindNames()
		data["MapsEnabled"] = f.maps.Enabled()
	}

	instruction, err := f.templates.Render(cfg.PromptTemplate, data)
	if err != nil {
		return "", errors.Wrapf(err, "render prompt for %s", cfg.Name)
	}
	return instruction, nil
}

func queryKindNames() []string {
	kinds := []school.QueryKind{
		school.KindDirectory, school.KindGraduation, school.KindDistrictFinance,
		school.KindHighNeedLowTech, school.KindHighGradLowFunding,
		school.KindSTEMLowClassSize, school.KindSTEMSearch,
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

func analysisKindNames() []string {
	kinds := []insight.Kind{
		insight.KindRanking, insight.KindStatistics, insight.KindComparison,
		insight.KindTrend, insight.KindOutliers, insight.KindCorrelation,
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}
