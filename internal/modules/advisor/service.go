package advisor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/opto-ai/opto/internal/modules/allocation"
	"github.com/opto-ai/opto/internal/modules/reference"
	"github.com/rs/zerolog"
)

// maxMessages caps how much history is forwarded to the model
const maxMessages = 20

// Observer receives chat-level counters
type Observer interface {
	ObserveChat(responseType string)
	ObserveTool(tool string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveChat(string)        {}
func (nopObserver) ObserveTool(string, error) {}

// Service runs the chat flow: classify, dispatch one engine operation,
// narrate.
type Service struct {
	assistant Assistant
	store     *reference.Store
	observer  Observer
	log       zerolog.Logger
}

// NewService creates a chat service. assistant may be nil, in which case
// every chat fails with ErrAssistantUnavailable. observer may be nil.
func NewService(assistant Assistant, store *reference.Store, observer Observer, log zerolog.Logger) *Service {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{
		assistant: assistant,
		store:     store,
		observer:  observer,
		log:       log.With().Str("service", "advisor").Logger(),
	}
}

// Available reports whether a language model is configured
func (s *Service) Available() bool {
	return s.assistant != nil
}

// Chat handles one advisor message. Engine errors and assistant errors are
// returned wrapped; a narration failure after a successful engine call is
// not an error and falls back to a plain-text summary.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if s.assistant == nil {
		return nil, ErrAssistantUnavailable
	}

	table := s.store.Current()
	messages, err := validateMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	state, err := toState(table, req.PortfolioData)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	log := s.log.With().Str("request_id", requestID).Logger()

	intent, err := s.assistant.ClassifyIntent(ctx, IntentRequest{
		RequestID:    requestID,
		SystemPrompt: intentPrompt(table, state),
		Messages:     messages,
		Tools:        Tools(table),
	})
	if err != nil {
		s.observer.ObserveChat("error")
		return nil, fmt.Errorf("%w: %w", ErrAssistantFailed, err)
	}

	if intent.ToolCall == nil {
		reply := strings.TrimSpace(intent.Reply)
		if reply == "" {
			reply = "I'm not sure how to help with that. I can simulate an allocation change, replay a historical scenario, or suggest a return-improving shift."
		}
		s.observer.ObserveChat(ResponseMessage)
		log.Debug().Msg("Answered without tool call")
		return &ChatResponse{
			Type:             ResponseMessage,
			RequestID:        requestID,
			AssistantMessage: Message{Role: RoleAssistant, Content: reply},
		}, nil
	}

	call := *intent.ToolCall
	opReq, err := call.Request()
	if err != nil {
		s.observer.ObserveTool(call.Name, err)
		s.observer.ObserveChat("error")
		return nil, err
	}

	outcome, err := allocation.Execute(table, state, opReq)
	s.observer.ObserveTool(call.Name, err)
	if err != nil {
		s.observer.ObserveChat("error")
		return nil, err
	}

	log.Info().
		Str("tool", call.Name).
		Str("operation", string(opReq.Operation)).
		Msg("Tool executed")

	narration, err := s.assistant.Narrate(ctx, NarrationRequest{
		RequestID:    requestID,
		Tool:         ToolName(call.Name),
		SystemPrompt: narrationPrompt(table, state),
		Messages:     messages,
		Result:       describeOutcome(table, outcome),
	})
	narration = strings.TrimSpace(narration)
	if err != nil || narration == "" {
		log.Warn().Err(err).Str("tool", call.Name).Msg("Narration failed, using summary")
		narration = fallbackNarration(table, outcome)
	}

	s.observer.ObserveChat(ResponseFunctionResult)
	return &ChatResponse{
		Type:             ResponseFunctionResult,
		RequestID:        requestID,
		FunctionName:     ToolName(call.Name),
		Result:           outcome.Result(),
		AssistantMessage: Message{Role: RoleAssistant, Content: narration},
	}, nil
}

// validateMessages drops blank turns and keeps the most recent history.
// The last remaining turn must come from the user.
func validateMessages(in []Message) ([]Message, error) {
	out := make([]Message, 0, len(in))
	for i, m := range in {
		switch m.Role {
		case RoleUser, RoleAssistant:
		default:
			return nil, fmt.Errorf("%w: message %d has unsupported role %q", ErrInvalidRequest, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: messages are required", ErrInvalidRequest)
	}
	if out[len(out)-1].Role != RoleUser {
		return nil, fmt.Errorf("%w: last message must be from the user", ErrInvalidRequest)
	}
	if len(out) > maxMessages {
		out = out[len(out)-maxMessages:]
	}
	return out, nil
}

// toState resolves the caller's allocation keys against the table
func toState(table *reference.Table, data PortfolioData) (allocation.State, error) {
	if len(data.Allocations) == 0 {
		return allocation.State{}, fmt.Errorf("%w: portfolio_data.allocations is required", ErrInvalidRequest)
	}

	alloc := make(allocation.Allocation, len(data.Allocations))
	for ref, weight := range data.Allocations {
		key, ok := table.ResolveAsset(ref)
		if !ok {
			return allocation.State{}, fmt.Errorf("%w: %q", reference.ErrUnknownAsset, ref)
		}
		if _, dup := alloc[key]; dup {
			return allocation.State{}, fmt.Errorf("%w: %q given more than once", ErrInvalidRequest, key)
		}
		alloc[key] = weight
	}

	m := data.Metrics
	for _, v := range []float64{m.ReturnPct, m.YieldPct, m.VolatilityPct} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return allocation.State{}, fmt.Errorf("%w: metrics must be finite", ErrInvalidRequest)
		}
	}

	return allocation.State{Allocation: alloc, Metrics: m}, nil
}

// IsClientError reports whether err was caused by the request rather than
// by the model or the server
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, reference.ErrUnknownAsset) ||
		errors.Is(err, reference.ErrUnknownScenario) ||
		errors.Is(err, allocation.ErrInvalidTarget) ||
		errors.Is(err, allocation.ErrInvalidAllocation)
}
