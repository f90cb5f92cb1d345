package agents

import (
	"sync"

	"edinsights/internal/adapters/ai"
)

// CostTracker accumulates AI model usage costs across the process lifetime.
type CostTracker struct {
	mu    sync.RWMutex
	costs map[string]*ModelCost
}

// ModelCost tracks accumulated usage for a specific model.
type ModelCost struct {
	ModelID      string
	InputTokens  int64
	OutputTokens int64
	TotalCostUSD float64
	CallCount    int64
}

// NewCostTracker creates an empty cost tracker.
func NewCostTracker() *CostTracker {
	return &CostTracker{costs: make(map[string]*ModelCost)}
}

// RecordUsage records token usage for a model and returns the cost of this
// call in USD.
func (ct *CostTracker) RecordUsage(modelInfo *ai.ModelInfo, inputTokens, outputTokens int) float64 {
	cost := CalculateCost(modelInfo, inputTokens, outputTokens)

	ct.mu.Lock()
	defer ct.mu.Unlock()

	mc, ok := ct.costs[modelInfo.Name]
	if !ok {
		mc = &ModelCost{ModelID: modelInfo.Name}
		ct.costs[modelInfo.Name] = mc
	}

	mc.InputTokens += int64(inputTokens)
	mc.OutputTokens += int64(outputTokens)
	mc.TotalCostUSD += cost
	mc.CallCount++

	return cost
}

// GetCost returns accumulated cost data for a specific model.
func (ct *CostTracker) GetCost(modelID string) (*ModelCost, bool) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	cost, ok := ct.costs[modelID]
	return cost, ok
}

// TotalCost returns the total cost across all models.
func (ct *CostTracker) TotalCost() float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	var total float64
	for _, cost := range ct.costs {
		total += cost.TotalCostUSD
	}
	return total
}

// Reset clears all cost data.
func (ct *CostTracker) Reset() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.costs = make(map[string]*ModelCost)
}

// CalculateCost computes the USD cost for a token usage against a model's
// pricing.
func CalculateCost(modelInfo *ai.ModelInfo, inputTokens, outputTokens int) float64 {
	inputCost := float64(inputTokens) / 1_000.0 * modelInfo.InputCostPer1K
	outputCost := float64(outputTokens) / 1_000.0 * modelInfo.OutputCostPer1K
	return inputCost + outputCost
}
