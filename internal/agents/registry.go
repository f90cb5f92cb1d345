package agents

import (
	"sync"

	"google.golang.org/adk/agent"

	"edinsights/internal/adapters/ai"
)

// Entry pairs a built agent with its config and resolved model metadata.
type Entry struct {
	Agent     agent.Agent
	Config    AgentConfig
	ModelInfo *ai.ModelInfo
}

// Registry stores built agents by role.
type Registry struct {
	agents map[AgentType]Entry
	mu     sync.RWMutex
}

// NewRegistry constructs an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[AgentType]Entry)}
}

// Register adds or replaces an agent entry.
func (r *Registry) Register(agentType AgentType, entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agentType] = entry
}

// Get retrieves an agent entry by role.
func (r *Registry) Get(agentType AgentType) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.agents[agentType]
	return entry, ok
}

// List returns registered agent types.
func (r *Registry) List() []AgentType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]AgentType, 0, len(r.agents))
	for t := range r.agents {
		res = append(res, t)
	}

	return res
}
