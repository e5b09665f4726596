package testing

import (
	"context"
	"sync"

	"github.com/opto-ai/opto/internal/modules/advisor"
)

// MockAssistant is an advisor.Assistant with scripted answers. Safe for
// concurrent use.
type MockAssistant struct {
	mu sync.Mutex

	intent     *advisor.Intent
	intentErr  error
	narration  string
	narrateErr error

	intentCalls  []advisor.IntentRequest
	narrateCalls []advisor.NarrationRequest
}

// NewMockAssistant creates a mock that answers every message directly
func NewMockAssistant() *MockAssistant {
	return &MockAssistant{
		intent: &advisor.Intent{Reply: "Hello."},
	}
}

// SetToolCall makes ClassifyIntent request tool with raw JSON arguments
func (m *MockAssistant) SetToolCall(tool advisor.ToolName, arguments string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intent = &advisor.Intent{ToolCall: &advisor.ToolCall{
		ID:        "call_1",
		Name:      string(tool),
		Arguments: arguments,
	}}
	m.intentErr = nil
}

// SetReply makes ClassifyIntent answer directly
func (m *MockAssistant) SetReply(reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intent = &advisor.Intent{Reply: reply}
	m.intentErr = nil
}

// SetIntentError makes ClassifyIntent fail
func (m *MockAssistant) SetIntentError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intentErr = err
}

// SetNarration sets the Narrate answer
func (m *MockAssistant) SetNarration(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.narration = text
	m.narrateErr = err
}

// ClassifyIntent implements advisor.Assistant
func (m *MockAssistant) ClassifyIntent(_ context.Context, req advisor.IntentRequest) (*advisor.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intentCalls = append(m.intentCalls, req)
	if m.intentErr != nil {
		return nil, m.intentErr
	}
	return m.intent, nil
}

// Narrate implements advisor.Assistant
func (m *MockAssistant) Narrate(_ context.Context, req advisor.NarrationRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.narrateCalls = append(m.narrateCalls, req)
	return m.narration, m.narrateErr
}

// IntentCalls returns a copy of the ClassifyIntent requests seen so far
func (m *MockAssistant) IntentCalls() []advisor.IntentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]advisor.IntentRequest, len(m.intentCalls))
	copy(out, m.intentCalls)
	return out
}

// NarrateCalls returns a copy of the Narrate requests seen so far
func (m *MockAssistant) NarrateCalls() []advisor.NarrationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]advisor.NarrationRequest, len(m.narrateCalls))
	copy(out, m.narrateCalls)
	return out
}
