package inference

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// writeTimeout bounds a single background insert
const writeTimeout = 5 * time.Second

// CallParams describes one completed LLM call
type CallParams struct {
	RequestID        string
	Provider         string
	Model            string
	Operation        string
	ToolName         string
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	Latency          time.Duration
	Err              error
}

// Logger persists inference records without blocking the caller. A nil
// *Logger is valid and drops every call.
type Logger struct {
	repo *Repository
	log  zerolog.Logger
	wg   sync.WaitGroup
}

// NewLogger creates a new inference logger
func NewLogger(repo *Repository, log zerolog.Logger) *Logger {
	return &Logger{
		repo: repo,
		log:  log.With().Str("component", "inference_logger").Logger(),
	}
}

// LogCall records a call asynchronously; write failures are logged only
func (l *Logger) LogCall(params CallParams) {
	if l == nil || l.repo == nil {
		return
	}

	rec := Record{
		ID:               uuid.NewString(),
		RequestID:        params.RequestID,
		Provider:         params.Provider,
		Model:            params.Model,
		Operation:        params.Operation,
		ToolName:         params.ToolName,
		PromptTokens:     params.PromptTokens,
		CompletionTokens: params.CompletionTokens,
		TotalTokens:      params.TotalTokens,
		CostUSD:          EstimateCost(params.Model, params.PromptTokens, params.CompletionTokens),
		LatencyMs:        params.Latency.Milliseconds(),
		Status:           StatusSuccess,
		CreatedAt:        time.Now(),
	}
	if params.Err != nil {
		rec.Status = StatusError
		rec.ErrorMessage = params.Err.Error()
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := l.repo.Create(ctx, rec); err != nil {
			l.log.Error().
				Err(err).
				Str("request_id", rec.RequestID).
				Str("operation", rec.Operation).
				Msg("Failed to log inference call")
		}
	}()
}

// Flush waits for pending writes
func (l *Logger) Flush() {
	if l == nil {
		return
	}
	l.wg.Wait()
}

// EstimateCost gives a rough USD cost from per-million-token list prices
func EstimateCost(model string, promptTokens, completionTokens int64) float64 {
	var inputPer1M, outputPer1M float64

	switch model {
	case "gpt-4o":
		inputPer1M, outputPer1M = 2.50, 10.00
	case "gpt-4o-mini":
		inputPer1M, outputPer1M = 0.15, 0.60
	case "gpt-4.1":
		inputPer1M, outputPer1M = 2.00, 8.00
	case "gpt-4.1-mini":
		inputPer1M, outputPer1M = 0.40, 1.60
	case "gpt-3.5-turbo":
		inputPer1M, outputPer1M = 0.50, 1.50
	default:
		inputPer1M, outputPer1M = 5.00, 15.00
	}

	return float64(promptTokens)/1_000_000*inputPer1M +
		float64(completionTokens)/1_000_000*outputPer1M
}
