package advisor

import "context"

// Assistant is the language model as the chat flow sees it
type Assistant interface {
	// ClassifyIntent either picks one tool call or answers directly
	ClassifyIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	// Narrate explains an engine result to the advisor
	Narrate(ctx context.Context, req NarrationRequest) (string, error)
}

// IntentRequest is the input to ClassifyIntent
type IntentRequest struct {
	RequestID    string
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDefinition
}

// Intent is the model's decision. ToolCall is nil for a direct reply.
type Intent struct {
	Reply    string
	ToolCall *ToolCall
}

// NarrationRequest is the input to Narrate. Result is the engine outcome
// already rendered as text.
type NarrationRequest struct {
	RequestID    string
	Tool         ToolName
	SystemPrompt string
	Messages     []Message
	Result       string
}
