package agents

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edinsights/internal/adapters/ai"
	"edinsights/internal/domain/school"
)

func TestTurnPlanWantsView(t *testing.T) {
	all := TurnPlan{}
	assert.True(t, all.WantsView(ViewSummary))
	assert.True(t, all.WantsView(ViewChart))
	assert.True(t, all.WantsView(ViewMap))
	assert.True(t, all.WantsView(ViewTable))

	only := TurnPlan{Views: []View{ViewSummary, ViewTable}}
	assert.True(t, only.WantsView(ViewSummary))
	assert.True(t, only.WantsView(ViewTable))
	assert.False(t, only.WantsView(ViewChart))
	assert.False(t, only.WantsView(ViewMap))
}

func TestTurnPlanDecodesInterpreterJSON(t *testing.T) {
	raw := `{
		"intent": "ranking",
		"needs_data": true,
		"query": {"kind": "graduation", "filters": {"county": "Alameda", "limit": 10}},
		"analyses": [{"kind": "ranking", "metric": "graduation_rate", "top_n": 5}],
		"views": ["summary", "chart"]
	}`

	var plan TurnPlan
	require.NoError(t, json.Unmarshal([]byte(raw), &plan))

	assert.True(t, plan.NeedsData)
	assert.Equal(t, school.KindGraduation, plan.Query.Kind)
	assert.Equal(t, "Alameda", plan.Query.Filters.County)
	assert.Equal(t, 10, plan.Query.Filters.Limit)
	require.Len(t, plan.Analyses, 1)
	assert.Equal(t, "graduation_rate", plan.Analyses[0].Metric)
	assert.Equal(t, []View{ViewSummary, ViewChart}, plan.Views)
}

func TestCostTrackerAccumulates(t *testing.T) {
	tracker := NewCostTracker()
	model := &ai.ModelInfo{
		Name:            "gemini-2.0-flash",
		InputCostPer1K:  0.10,
		OutputCostPer1K: 0.40,
	}

	cost := tracker.RecordUsage(model, 1000, 500)
	assert.InDelta(t, 0.30, cost, 1e-9)

	tracker.RecordUsage(model, 1000, 500)
	assert.InDelta(t, 0.60, tracker.TotalCost(), 1e-9)

	mc, ok := tracker.GetCost("gemini-2.0-flash")
	require.True(t, ok)
	assert.Equal(t, int64(2000), mc.InputTokens)
	assert.Equal(t, int64(2), mc.CallCount)

	tracker.Reset()
	assert.Zero(t, tracker.TotalCost())
}
