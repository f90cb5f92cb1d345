package agents

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Message is one exchange in a chat session.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Tokens    int       `json:"tokens,omitempty"`
}

// ConversationManager keeps per-session chat history with token accounting.
// When compression is on and the estimated token count exceeds the budget,
// older turns collapse into a single summary message.
type ConversationManager struct {
	mu            sync.Mutex
	history       []Message
	maxTokens     int
	currentTokens int
	compressionOn bool
	turnCount     int
}

// NewConversationManager creates a manager with the given token budget.
func NewConversationManager(maxTokens int) *ConversationManager {
	if maxTokens <= 0 {
		maxTokens = 50000
	}
	return &ConversationManager{
		history:   make([]Message, 0, 16),
		maxTokens: maxTokens,
	}
}

// SetCompression enables or disables history compression.
func (cm *ConversationManager) SetCompression(enabled bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.compressionOn = enabled
}

// AddUserMessage appends a user question.
func (cm *ConversationManager) AddUserMessage(content string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.append(Message{Role: "user", Content: content, Timestamp: time.Now(), Tokens: estimateTokens(content)})
	cm.turnCount++
}

// AddAssistantMessage appends the assistant's narrative answer.
func (cm *ConversationManager) AddAssistantMessage(content string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.append(Message{Role: "assistant", Content: content, Timestamp: time.Now(), Tokens: estimateTokens(content)})
}

// History returns a copy of the conversation.
func (cm *ConversationManager) History() []Message {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	out := make([]Message, len(cm.history))
	copy(out, cm.history)
	return out
}

// TurnCount returns the number of user turns so far.
func (cm *ConversationManager) TurnCount() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.turnCount
}

// TokenCount returns the current estimated token count.
func (cm *ConversationManager) TokenCount() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.currentTokens
}

// ContextPrompt renders recent history as a prompt prefix so follow-up
// questions ("what about Fresno?") resolve against earlier turns.
func (cm *ConversationManager) ContextPrompt() string {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if len(cm.history) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Earlier in this conversation:\n")
	for _, msg := range cm.history {
		b.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
	}
	return b.String()
}

func (cm *ConversationManager) append(msg Message) {
	cm.history = append(cm.history, msg)
	cm.currentTokens += msg.Tokens

	if cm.compressionOn && cm.currentTokens > cm.maxTokens {
		cm.compress()
	}
}

// compress keeps the last few messages and collapses the rest into one
// summary line per turn.
func (cm *ConversationManager) compress() {
	const keepLast = 6
	if len(cm.history) <= keepLast {
		return
	}

	cut := len(cm.history) - keepLast
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[compressed %d earlier messages]\n", cut))
	for _, msg := range cm.history[:cut] {
		line := msg.Content
		if len(line) > 120 {
			line = line[:120] + "..."
		}
		b.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, line))
	}

	summary := Message{
		Role:      "assistant",
		Content:   b.String(),
		Timestamp: time.Now(),
	}
	summary.Tokens = estimateTokens(summary.Content)

	cm.history = append([]Message{summary}, cm.history[cut:]...)

	cm.currentTokens = 0
	for _, msg := range cm.history {
		cm.currentTokens += msg.Tokens
	}
}

// SessionStore holds conversation managers by session ID.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*ConversationManager

	maxTokens   int
	compression bool
}

// NewSessionStore creates a store applying the given defaults to new
// sessions.
func NewSessionStore(maxTokens int, compression bool) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*ConversationManager),
		maxTokens:   maxTokens,
		compression: compression,
	}
}

// Get returns the conversation for a session, creating it on first use.
func (s *SessionStore) Get(sessionID string) *ConversationManager {
	s.mu.Lock()
	defer s.mu.Unlock()

	cm, ok := s.sessions[sessionID]
	if !ok {
		cm = NewConversationManager(s.maxTokens)
		cm.SetCompression(s.compression)
		s.sessions[sessionID] = cm
	}
	return cm
}

// estimateTokens is a rough character-based estimate, about 4 characters per
// token for English text.
func estimateTokens(text string) int {
	return len(text) / 4
}
