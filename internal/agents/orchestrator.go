package agents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"edinsights/internal/adapters/config"
	"edinsights/internal/domain/insight"
	"edinsights/internal/domain/school"
	"edinsights/internal/formatter"
	"edinsights/internal/metrics"
	"edinsights/internal/tools/analysis"
	"edinsights/internal/tools/data"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
	"edinsights/pkg/templates"
)

// ChatRequest is one user turn.
type ChatRequest struct {
	SessionID string
	Question  string

	// Attachment parts already validated and converted upstream.
	Attachments []*genai.Part
}

// ChatResult is the orchestrator's answer for one turn.
type ChatResult struct {
	SessionID string
	Payload   *formatter.ResponsePayload

	TokensUsed int
	CostUSD    float64
	Duration   time.Duration
}

// Orchestrator runs the fixed two-level delegation for each turn:
// interpreter plans, the data service fetches, the analysis service computes
// insights, the synthesizer narrates, and the formatter assembles the
// payload. The graph is wired here and only here; no agent ever decides to
// call another agent.
type Orchestrator struct {
	runners     map[AgentType]*AgentRunner
	dataSvc     *data.Service
	analysisSvc *analysis.Service
	formatter   *formatter.Formatter
	templates   *templates.Registry
	sessions    *SessionStore
	log         *logger.Logger
}

// NewOrchestrator wires the orchestration graph.
func NewOrchestrator(
	runtimeConfig config.AgentsConfig,
	runners map[AgentType]*AgentRunner,
	dataSvc *data.Service,
	analysisSvc *analysis.Service,
	fmtr *formatter.Formatter,
	tmpl *templates.Registry,
) (*Orchestrator, error) {
	if dataSvc == nil {
		return nil, errors.New("data service is required")
	}
	if analysisSvc == nil {
		return nil, errors.New("analysis service is required")
	}
	if fmtr == nil {
		return nil, errors.New("formatter is required")
	}
	if tmpl == nil {
		tmpl = templates.Get()
	}
	for _, role := range []AgentType{AgentInterpreter, AgentData, AgentSynthesizer} {
		if _, ok := runners[role]; !ok {
			return nil, errors.Newf("missing runner for agent %s", role)
		}
	}

	return &Orchestrator{
		runners:     runners,
		dataSvc:     dataSvc,
		analysisSvc: analysisSvc,
		formatter:   fmtr,
		templates:   tmpl,
		sessions:    NewSessionStore(runtimeConfig.MaxTokens, runtimeConfig.EnableCompression),
		log:         logger.Get().With("component", "orchestrator"),
	}, nil
}

// Handle executes one chat turn end to end.
func (o *Orchestrator) Handle(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	start := time.Now()

	if req.Question == "" {
		metrics.ChatTurns.WithLabelValues("validation").Inc()
		return nil, errors.NewValidationError("message", "message text is required", "")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	conversation := o.sessions.Get(sessionID)

	result := &ChatResult{SessionID: sessionID}

	plan, interpOut, err := o.interpret(ctx, conversation, req)
	if err != nil {
		o.recordTurn(err)
		return nil, err
	}
	result.TokensUsed += interpOut.TokensUsed
	result.CostUSD += interpOut.CostUSD

	if !plan.NeedsData {
		summary := plan.Clarification
		if summary == "" {
			summary = "I can answer questions about US public school data: directories, graduation rates, district finances, and STEM offerings."
		}
		result.Payload = &formatter.ResponsePayload{Summary: summary}
		result.Duration = time.Since(start)
		conversation.AddUserMessage(req.Question)
		conversation.AddAssistantMessage(summary)
		metrics.ChatTurns.WithLabelValues("success").Inc()
		return result, nil
	}

	// When the interpreter left the query kind open, delegate the choice to
	// the data agent. Its tools only select the query; the actual fetch below
	// always goes through the data service so numbers never pass through a
	// model.
	if plan.Query.Kind == "" {
		selected, selOut, err := o.selectQuery(ctx, req.Question)
		if err != nil {
			o.recordTurn(err)
			return nil, err
		}
		plan.Query = *selected
		result.TokensUsed += selOut.TokensUsed
		result.CostUSD += selOut.CostUSD
	}

	dataset, err := o.dataSvc.Query(ctx, plan.Query.Kind, plan.Query.Filters)
	if err != nil {
		o.recordTurn(err)
		return nil, err
	}

	analyses := plan.Analyses
	if len(analyses) == 0 && !dataset.Empty() {
		// Best effort: let the insights agent pick default analyses. Failure
		// here degrades to a data-only answer, never a failed turn.
		if selected, selOut := o.selectAnalyses(ctx, req.Question, dataset); len(selected) > 0 {
			analyses = selected
			result.TokensUsed += selOut.TokensUsed
			result.CostUSD += selOut.CostUSD
		}
	}
	insights := o.computeInsights(dataset, analyses)

	narrative, synthOut := o.synthesize(ctx, req.Question, plan, dataset, insights)
	if synthOut != nil {
		result.TokensUsed += synthOut.TokensUsed
		result.CostUSD += synthOut.CostUSD
	}

	result.Payload = o.formatter.Build(formatter.Input{
		Narrative: narrative,
		Dataset:   dataset,
		Insights:  insights,
		WantChart: plan.WantsView(ViewChart),
		WantMap:   plan.WantsView(ViewMap),
		WantTable: plan.WantsView(ViewTable),
	})
	result.Duration = time.Since(start)

	conversation.AddUserMessage(req.Question)
	conversation.AddAssistantMessage(result.Payload.Summary)

	metrics.ChatTurns.WithLabelValues("success").Inc()
	o.log.Infof("Turn complete: session=%s kind=%s rows=%d insights=%d tokens=%d cost=$%.4f duration=%v",
		sessionID, dataset.Kind, dataset.RowCount, len(insights), result.TokensUsed, result.CostUSD, result.Duration)

	return result, nil
}

// interpret runs the planner agent and decodes its JSON plan.
func (o *Orchestrator) interpret(ctx context.Context, conversation *ConversationManager, req ChatRequest) (*TurnPlan, *ModelOutput, error) {
	prompt := req.Question
	if history := conversation.ContextPrompt(); history != "" {
		prompt = history + "\nCurrent question: " + req.Question
	}

	out, err := o.runners[AgentInterpreter].Run(ctx, prompt, req.Attachments...)
	if err != nil {
		return nil, nil, err
	}
	if out.Structured == nil {
		return nil, nil, errors.Wrap(errors.ErrModelUnavailable, "interpreter produced no plan")
	}

	planJSON, err := json.Marshal(out.Structured)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrModelUnavailable, "interpreter plan not serializable")
	}
	var plan TurnPlan
	if err := json.Unmarshal(planJSON, &plan); err != nil {
		return nil, nil, errors.Wrap(errors.ErrModelUnavailable, "interpreter plan has unexpected shape")
	}

	o.log.Debugf("Turn plan: intent=%q kind=%s analyses=%d views=%v",
		plan.Intent, plan.Query.Kind, len(plan.Analyses), plan.Views)
	return &plan, out, nil
}

// selectQuery runs the data agent and reads which query tool it reached for.
// The data agent holds only warehouse query tools, so the choice is bounded
// by construction.
func (o *Orchestrator) selectQuery(ctx context.Context, question string) (*QueryPlan, *ModelOutput, error) {
	out, err := o.runners[AgentData].Run(ctx, question)
	if err != nil {
		return nil, nil, err
	}

	for _, call := range out.ToolCalls {
		kind, ok := data.KindForTool(call.Name)
		if !ok {
			continue
		}
		return &QueryPlan{Kind: kind, Filters: data.FiltersFromArgs(call.Args)}, out, nil
	}

	return nil, nil, errors.NewValidationError("message",
		"could not determine which school data the question needs", question)
}

// selectAnalyses runs the insights agent and reads which analysis tools it
// reached for. Tool results from the model pass are discarded; every insight
// in the response is recomputed deterministically against the full dataset.
func (o *Orchestrator) selectAnalyses(ctx context.Context, question string, dataset *school.DatasetResult) ([]analysis.Request, *ModelOutput) {
	runner, ok := o.runners[AgentInsights]
	if !ok {
		return nil, nil
	}

	sample := dataset.Rows
	if len(sample) > 20 {
		sample = sample[:20]
	}
	sampleJSON, err := json.Marshal(map[string]interface{}{
		"kind":        dataset.Kind,
		"fields":      dataset.Fields,
		"rows":        sample,
		"row_count":   dataset.RowCount,
		"fingerprint": dataset.Fingerprint,
	})
	if err != nil {
		return nil, nil
	}

	prompt := "Question: " + question + "\n\nDataset:\n" + string(sampleJSON) +
		"\n\nCall the analysis tools that best help answer the question."

	out, err := runner.Run(ctx, prompt)
	if err != nil {
		o.log.Warnf("Insights agent unavailable, skipping default analyses: %v", err)
		return nil, nil
	}

	requests := make([]analysis.Request, 0, len(out.ToolCalls))
	for _, call := range out.ToolCalls {
		kind, ok := analysis.KindForTool(call.Name)
		if !ok {
			continue
		}
		req := analysis.RequestFromArgs(call.Args)
		req.Kind = kind
		requests = append(requests, req)
	}
	return requests, out
}

// computeInsights runs the requested analyses. An empty dataset skips
// analysis entirely; a single analysis failing on thin data is logged and
// dropped rather than failing the whole turn.
func (o *Orchestrator) computeInsights(dataset *school.DatasetResult, analyses []analysis.Request) []*insight.Insight {
	if dataset.Empty() || len(analyses) == 0 {
		return nil
	}

	insights := make([]*insight.Insight, 0, len(analyses))
	for _, req := range analyses {
		res, err := o.analysisSvc.Analyze(dataset, req)
		if err != nil {
			o.log.Warnf("Analysis skipped: kind=%s metric=%s err=%v", req.Kind, req.Metric, err)
			continue
		}
		insights = append(insights, res)
	}
	return insights
}

// synthesize asks the synthesizer for a narrative grounded in the dataset.
// When the model is unavailable the turn still succeeds with the formatter's
// deterministic summary; the data was already fetched and verified.
func (o *Orchestrator) synthesize(
	ctx context.Context,
	question string,
	plan *TurnPlan,
	dataset *school.DatasetResult,
	insights []*insight.Insight,
) (string, *ModelOutput) {
	datasetJSON, err := json.Marshal(dataset.Rows)
	if err != nil {
		datasetJSON = []byte("[]")
	}
	insightsJSON := ""
	if len(insights) > 0 {
		if data, err := json.Marshal(insights); err == nil {
			insightsJSON = string(data)
		}
	}

	prompt, err := o.templates.Render("agents/synthesizer", map[string]any{
		"Question":     question,
		"QueryKind":    string(dataset.Kind),
		"RowCount":     dataset.RowCount,
		"DatasetJSON":  string(datasetJSON),
		"InsightsJSON": insightsJSON,
	})
	if err != nil {
		o.log.Errorf("Render synthesizer prompt failed: %v", err)
		return "", nil
	}

	out, err := o.runners[AgentSynthesizer].Run(ctx, prompt)
	if err != nil {
		o.log.Warnf("Synthesizer unavailable, using deterministic summary: %v", err)
		return "", nil
	}
	return out.Text, out
}

// recordTurn classifies a turn failure for metrics.
func (o *Orchestrator) recordTurn(err error) {
	status := "error"
	switch {
	case errors.Is(err, errors.ErrValidation):
		status = "validation"
	case errors.Is(err, errors.ErrInsufficientData):
		status = "insufficient_data"
	case errors.Is(err, errors.ErrDataUnavailable):
		status = "data_unavailable"
	case errors.Is(err, errors.ErrModelUnavailable):
		status = "model_unavailable"
	}
	metrics.ChatTurns.WithLabelValues(status).Inc()
}
