package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStructuredOutput(t *testing.T) {
	response := "Here is the plan:\n```json\n{\"intent\":\"ranking\",\"needs_data\":true}\n```\nDone."

	result, err := ExtractStructuredOutput(response)
	require.NoError(t, err)
	assert.Equal(t, "ranking", result["intent"])
	assert.Equal(t, true, result["needs_data"])
}

func TestExtractStructuredOutputNested(t *testing.T) {
	response := `{"query":{"kind":"graduation","filters":{"county":"Alameda"}},"views":["summary","table"]}`

	result, err := ExtractStructuredOutput(response)
	require.NoError(t, err)

	query, ok := result["query"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "graduation", query["kind"])
}

func TestExtractStructuredOutputSkipsInvalidCandidates(t *testing.T) {
	// The first brace pair is not valid JSON; the extractor should move on
	// and find the real object.
	response := `{not json} but later {"intent":"stats"}`

	result, err := ExtractStructuredOutput(response)
	require.NoError(t, err)
	assert.Equal(t, "stats", result["intent"])
}

func TestExtractStructuredOutputNone(t *testing.T) {
	_, err := ExtractStructuredOutput("plain prose with no JSON at all")
	assert.Error(t, err)
}
