// Package inference records every language-model call made while serving
// chat requests and exposes the log for inspection.
package inference

import "time"

// Call status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record is a single LLM API call
type Record struct {
	ID               string    `json:"id"`
	RequestID        string    `json:"request_id"` // Groups the calls of one chat request
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	Operation        string    `json:"operation"` // "classify_intent", "narrate"
	ToolName         string    `json:"tool_name,omitempty"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	LatencyMs        int64     `json:"latency_ms"`
	Status           string    `json:"status"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Stats are aggregated figures over a window of records
type Stats struct {
	TotalCalls      int64   `json:"total_calls"`
	SuccessfulCalls int64   `json:"successful_calls"`
	FailedCalls     int64   `json:"failed_calls"`
	TotalTokens     int64   `json:"total_tokens"`
	TotalCostUSD    float64 `json:"total_cost_usd"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
}

// Query filters a record listing. Zero values mean no filter.
type Query struct {
	RequestID string
	Operation string
	Status    string
	Since     *time.Time
	Limit     int
	Offset    int
}
