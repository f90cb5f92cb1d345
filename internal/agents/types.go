package agents

import (
	"edinsights/internal/domain/school"
	"edinsights/internal/tools/analysis"
)

// AgentType enumerates the fixed agent roles. The call graph between them is
// static: interpreter plans, data fetches, insights analyzes, synthesizer
// writes the narrative. Leaves never call each other.
type AgentType string

const (
	AgentInterpreter AgentType = "interpreter"
	AgentData        AgentType = "data"
	AgentInsights    AgentType = "insights"
	AgentSynthesizer AgentType = "synthesizer"
)

// View names a response rendering the formatter can produce.
type View string

const (
	ViewSummary View = "summary"
	ViewChart   View = "chart"
	ViewMap     View = "map"
	ViewTable   View = "table"
)

// TurnPlan is the interpreter's structured output for one user turn: which
// warehouse query to run, which analyses to compute, and which views to
// render.
type TurnPlan struct {
	Intent        string              `json:"intent"`
	NeedsData     bool                `json:"needs_data"`
	Query         QueryPlan           `json:"query"`
	Analyses      []analysis.Request  `json:"analyses,omitempty"`
	Views         []View              `json:"views,omitempty"`
	Clarification string              `json:"clarification,omitempty"`
}

// QueryPlan selects one warehouse query with its filters.
type QueryPlan struct {
	Kind    school.QueryKind    `json:"kind"`
	Filters school.QueryFilters `json:"filters"`
}

// WantsView reports whether the plan requested a given view. An empty view
// list means every applicable view.
func (p *TurnPlan) WantsView(v View) bool {
	if len(p.Views) == 0 {
		return true
	}
	for _, want := range p.Views {
		if want == v {
			return true
		}
	}
	return false
}
