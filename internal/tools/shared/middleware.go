package shared

import (
	"time"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"edinsights/internal/metrics"
)

// Middleware wraps tool functions with retry and metrics recording.
// Attempts <= 1 disables retry; Backoff applies between attempts and honors
// context cancellation.
type Middleware struct {
	Attempts int
	Backoff  time.Duration
}

// WrapFunc builds an ADK function tool around fn with the configured
// middleware applied. Execution latency and status are recorded per tool.
func (m Middleware) WrapFunc(name, description string, fn ToolFunc) tool.Tool {
	attempts := m.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := m.Backoff

	t, _ := functiontool.New(
		functiontool.Config{
			Name:        name,
			Description: description,
		},
		func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
			start := time.Now()

			var result map[string]interface{}
			var err error
			for i := 0; i < attempts; i++ {
				result, err = fn(ctx, args)
				if err == nil {
					break
				}
				if backoff > 0 && i < attempts-1 {
					select {
					case <-ctx.Done():
						metrics.RecordToolExecution(name, time.Since(start), ctx.Err())
						return nil, ctx.Err()
					case <-time.After(backoff):
					}
				}
			}

			metrics.RecordToolExecution(name, time.Since(start), err)
			return result, err
		})
	return t
}
