package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/runner"
	adksession "google.golang.org/adk/session"
	"google.golang.org/genai"

	"edinsights/internal/adapters/ai"
	"edinsights/internal/adapters/config"
	"edinsights/internal/metrics"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
)

// ToolCall records one function call the model made during a run.
type ToolCall struct {
	Name string
	Args map[string]interface{}
}

// ModelOutput is the result of one agent invocation.
type ModelOutput struct {
	AgentType  AgentType
	Text       string
	Structured map[string]interface{}
	ToolCalls  []ToolCall

	TokensUsed    int
	InputTokens   int
	OutputTokens  int
	CostUSD       float64
	Duration      time.Duration
	ToolCallCount int
	SessionID     string
}

// AgentRunner executes one agent through the ADK runner with rate limiting,
// token accounting, and a single retry on model failure. Warehouse and
// analysis errors surface through tool responses and are never retried here.
type AgentRunner struct {
	entry          Entry
	runner         *runner.Runner
	runtimeConfig  config.AgentsConfig
	limiter        ai.RateLimiter
	costTracker    *CostTracker
	sessionService adksession.Service

	log *logger.Logger
}

// NewAgentRunner creates a runner for one built agent.
func NewAgentRunner(
	entry Entry,
	runtimeConfig config.AgentsConfig,
	limiter ai.RateLimiter,
	costTracker *CostTracker,
	sessionService adksession.Service,
) (*AgentRunner, error) {
	if sessionService == nil {
		sessionService = adksession.InMemoryService()
	}
	if limiter == nil {
		limiter = ai.NewNoOpLimiter()
	}

	runnerInstance, err := runner.New(runner.Config{
		AppName:        fmt.Sprintf("edinsights_%s", entry.Config.Type),
		Agent:          entry.Agent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create ADK runner")
	}

	return &AgentRunner{
		entry:          entry,
		runner:         runnerInstance,
		runtimeConfig:  runtimeConfig,
		limiter:        limiter,
		costTracker:    costTracker,
		sessionService: sessionService,
		log:            logger.Get().With("component", "agent_runner", "agent", entry.Config.Type),
	}, nil
}

// Run sends one prompt to the agent and collects the final response. Extra
// parts (attachment blobs) ride along with the prompt text. Model failures
// are retried once with backoff; after that the taxonomy error
// ErrModelUnavailable is returned.
func (r *AgentRunner) Run(ctx context.Context, prompt string, extraParts ...*genai.Part) (*ModelOutput, error) {
	start := time.Now()
	sessionID := uuid.New().String()

	timeout := r.entry.Config.TotalTimeout
	if timeout <= 0 {
		timeout = r.runtimeConfig.ExecutionTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempts := r.runtimeConfig.ModelRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var output *ModelOutput
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			r.log.Warnf("Retrying model call after failure: attempt=%d err=%v", attempt+1, lastErr)
			select {
			case <-execCtx.Done():
				return nil, errors.Wrap(errors.ErrModelUnavailable, "model call timed out")
			case <-time.After(r.runtimeConfig.RetryBackoff):
			}
		}

		if err := r.limiter.Wait(execCtx); err != nil {
			return nil, errors.Wrap(errors.ErrModelUnavailable, "rate limiter wait interrupted")
		}

		output, lastErr = r.runOnce(execCtx, sessionID, prompt, extraParts)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		metrics.RecordAgentCall(string(r.entry.Config.Type), r.modelName(), time.Since(start), 0, 0, lastErr)
		return nil, errors.Wrapf(errors.ErrModelUnavailable, "agent %s: %v", r.entry.Config.Type, lastErr)
	}

	output.AgentType = r.entry.Config.Type
	output.SessionID = sessionID
	output.Duration = time.Since(start)

	if r.costTracker != nil && r.entry.ModelInfo != nil {
		output.CostUSD = r.costTracker.RecordUsage(r.entry.ModelInfo, output.InputTokens, output.OutputTokens)
	}
	metrics.RecordAgentCall(string(r.entry.Config.Type), r.modelName(), output.Duration, output.CostUSD, output.TokensUsed, nil)
	metrics.AgentTokens.WithLabelValues(string(r.entry.Config.Type), r.modelName(), "input").Add(float64(output.InputTokens))
	metrics.AgentTokens.WithLabelValues(string(r.entry.Config.Type), r.modelName(), "output").Add(float64(output.OutputTokens))

	r.log.Infof("Agent run complete: session=%s duration=%v tokens=%d cost=$%.4f tools=%d",
		sessionID, output.Duration, output.TokensUsed, output.CostUSD, output.ToolCallCount)

	return output, nil
}

func (r *AgentRunner) modelName() string {
	if r.entry.ModelInfo != nil {
		return r.entry.ModelInfo.Name
	}
	return r.entry.Config.Model
}

// runOnce executes a single pass through the ADK event stream.
func (r *AgentRunner) runOnce(ctx context.Context, sessionID, prompt string, extraParts []*genai.Part) (*ModelOutput, error) {
	parts := make([]*genai.Part, 0, len(extraParts)+1)
	parts = append(parts, &genai.Part{Text: prompt})
	parts = append(parts, extraParts...)

	userContent := &genai.Content{
		Role:  "user",
		Parts: parts,
	}

	runConfig := agent.RunConfig{
		StreamingMode:             agent.StreamingModeSSE,
		SaveInputBlobsAsArtifacts: false,
	}

	output := &ModelOutput{}
	var finalResponse *adksession.Event

	for event, err := range r.runner.Run(ctx, "web", sessionID, userContent, runConfig) {
		if err != nil {
			return nil, err
		}
		if event == nil {
			continue
		}
		if event.LLMResponse.Partial {
			continue
		}

		if event.UsageMetadata != nil {
			output.InputTokens += int(event.UsageMetadata.PromptTokenCount)
			output.OutputTokens += int(event.UsageMetadata.CandidatesTokenCount)
		}

		if event.LLMResponse.Content != nil {
			for _, part := range event.LLMResponse.Content.Parts {
				if part.FunctionCall != nil {
					output.ToolCallCount++
					output.ToolCalls = append(output.ToolCalls, ToolCall{
						Name: part.FunctionCall.Name,
						Args: part.FunctionCall.Args,
					})
					r.log.Debugf("Tool call: %s(%v)", part.FunctionCall.Name, part.FunctionCall.Args)
				}
				if part.FunctionResponse != nil {
					r.log.Debugf("Tool result: %s", part.FunctionResponse.Name)
				}
			}
		}

		if event.TurnComplete && event.IsFinalResponse() {
			finalResponse = event
			break
		}
	}

	output.TokensUsed = output.InputTokens + output.OutputTokens

	if finalResponse == nil || finalResponse.LLMResponse.Content == nil {
		return nil, errors.New("no final response received")
	}

	for _, part := range finalResponse.LLMResponse.Content.Parts {
		if part.Text != "" {
			output.Text += part.Text
		}
	}
	if structured, err := ExtractStructuredOutput(output.Text); err == nil {
		output.Structured = structured
	}

	return output, nil
}

// ExtractStructuredOutput pulls the first complete JSON object out of a model
// response. Agents that produce structured output end their response with a
// JSON block.
func ExtractStructuredOutput(response string) (map[string]interface{}, error) {
	start := -1
	braceCount := 0

	for i, ch := range response {
		if ch == '{' {
			if start == -1 {
				start = i
			}
			braceCount++
		} else if ch == '}' {
			braceCount--
			if braceCount == 0 && start != -1 {
				jsonStr := response[start : i+1]
				var result map[string]interface{}
				if err := json.Unmarshal([]byte(jsonStr), &result); err == nil {
					return result, nil
				}
				start = -1
			}
		}
	}

	return nil, errors.New("no structured output found")
}
