package agents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationHistoryAndContextPrompt(t *testing.T) {
	cm := NewConversationManager(50000)

	assert.Empty(t, cm.ContextPrompt())

	cm.AddUserMessage("Best graduation rates in Alameda county?")
	cm.AddAssistantMessage("Jefferson High leads with 92.5%.")

	assert.Equal(t, 1, cm.TurnCount())

	history := cm.History()
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)

	prompt := cm.ContextPrompt()
	assert.Contains(t, prompt, "Earlier in this conversation:")
	assert.Contains(t, prompt, "user: Best graduation rates in Alameda county?")
	assert.Contains(t, prompt, "assistant: Jefferson High leads with 92.5%.")
}

func TestConversationCompression(t *testing.T) {
	// Tiny budget so compression triggers quickly.
	cm := NewConversationManager(100)
	cm.SetCompression(true)

	long := strings.Repeat("graduation rates by district ", 10)
	for i := 0; i < 10; i++ {
		cm.AddUserMessage(long)
		cm.AddAssistantMessage(long)
	}

	history := cm.History()
	require.NotEmpty(t, history)
	assert.LessOrEqual(t, len(history), 7, "compression should cap history at summary plus recent turns")
	assert.Contains(t, history[0].Content, "compressed", "oldest message should be the summary")
}

func TestConversationCompressionOffKeepsEverything(t *testing.T) {
	cm := NewConversationManager(100)

	for i := 0; i < 10; i++ {
		cm.AddUserMessage("question")
		cm.AddAssistantMessage("answer")
	}

	assert.Len(t, cm.History(), 20)
}

func TestSessionStoreReturnsSameManager(t *testing.T) {
	store := NewSessionStore(50000, true)

	a := store.Get("sess-1")
	a.AddUserMessage("hello")

	b := store.Get("sess-1")
	assert.Equal(t, 1, b.TurnCount())

	other := store.Get("sess-2")
	assert.Equal(t, 0, other.TurnCount())
}
