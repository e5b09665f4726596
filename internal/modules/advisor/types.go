// Package advisor turns an advisor's chat message into at most one
// allocation-engine operation. A language model classifies the intent and
// narrates the numeric result; the numbers themselves always come from the
// engine.
package advisor

import (
	"github.com/opto-ai/opto/internal/modules/allocation"
)

// Role is a chat participant
type Role string

// Chat roles
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// PortfolioData is the caller-held portfolio sent with every chat turn.
// Allocation keys are canonical asset keys; display names are accepted too.
type PortfolioData struct {
	Allocations map[string]float64          `json:"allocations"`
	Metrics     allocation.PortfolioMetrics `json:"metrics"`
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Messages      []Message     `json:"messages"`
	PortfolioData PortfolioData `json:"portfolio_data"`
}

// Response types
const (
	ResponseFunctionResult = "function_result"
	ResponseMessage        = "message"
)

// ChatResponse carries either a tool result with narration or a plain reply
type ChatResponse struct {
	Type             string      `json:"type"`
	RequestID        string      `json:"request_id"`
	FunctionName     ToolName    `json:"function_name,omitempty"`
	Result           interface{} `json:"result,omitempty"`
	AssistantMessage Message     `json:"assistant_message"`
}
