package agents

import (
	"time"

	"edinsights/internal/tools"
)

// AgentConfig captures runtime settings for an agent instance.
type AgentConfig struct {
	Type           AgentType
	Name           string
	Description    string
	AIProvider     string
	Model          string
	PromptTemplate string
	ToolCategory   string // catalog category this agent may hold, empty for none
	OutputKey      string

	MaxToolCalls int
	TotalTimeout time.Duration
}

// DefaultAgentConfigs defines the four fixed roles. Provider and model come
// from runtime config when agents are built; the call graph between roles is
// hard-wired in the orchestrator and never decided by a model.
var DefaultAgentConfigs = map[AgentType]AgentConfig{
	AgentInterpreter: {
		Type:           AgentInterpreter,
		Name:           "question_interpreter",
		Description:    "Translates user questions into a structured turn plan",
		PromptTemplate: "agents/interpreter",
		OutputKey:      "turn_plan",
		TotalTimeout:   30 * time.Second,
	},
	AgentData: {
		Type:           AgentData,
		Name:           "data_fetcher",
		Description:    "Runs parameterized warehouse queries",
		PromptTemplate: "agents/data",
		ToolCategory:   tools.CategoryData,
		MaxToolCalls:   3,
		TotalTimeout:   45 * time.Second,
	},
	AgentInsights: {
		Type:           AgentInsights,
		Name:           "insights_analyst",
		Description:    "Computes deterministic analyses over fetched datasets",
		PromptTemplate: "agents/insights",
		ToolCategory:   tools.CategoryAnalysis,
		MaxToolCalls:   6,
		TotalTimeout:   30 * time.Second,
	},
	AgentSynthesizer: {
		Type:           AgentSynthesizer,
		Name:           "response_synthesizer",
		Description:    "Writes the narrative summary grounded in dataset values",
		PromptTemplate: "agents/synthesizer",
		OutputKey:      "narrative",
		TotalTimeout:   45 * time.Second,
	},
}
