// Package openai implements the chat assistant on top of the official
// OpenAI Go SDK. Every call is timed, counted and written to the inference
// log.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/opto-ai/opto/internal/modules/advisor"
	"github.com/opto-ai/opto/internal/modules/inference"
	"github.com/rs/zerolog"
)

const provider = "openai"

// Operation names used in the inference log and metrics
const (
	OperationClassifyIntent = "classify_intent"
	OperationNarrate        = "narrate"
)

// ErrEmptyResponse means the API returned no choices
var ErrEmptyResponse = errors.New("no response from OpenAI")

// Config holds client settings
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string // Empty = official endpoint
	Timeout    time.Duration
	MaxRetries int
	MaxTokens  int
}

// CallRecorder persists a finished call
type CallRecorder interface {
	LogCall(params inference.CallParams)
}

// LatencyObserver receives per-call latency
type LatencyObserver interface {
	ObserveLLMCall(operation string, d time.Duration, err error)
}

// Client is an advisor.Assistant backed by the Chat Completions API
type Client struct {
	cli       oa.Client
	model     string
	maxTokens int64
	recorder  CallRecorder
	observer  LatencyObserver
	log       zerolog.Logger
}

var _ advisor.Assistant = (*Client)(nil)

// NewClient creates a new OpenAI client. recorder and observer may be nil.
func NewClient(cfg Config, recorder CallRecorder, observer LatencyObserver, log zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w: API key is not set", advisor.ErrAssistantUnavailable)
	}
	if cfg.Model == "" {
		return nil, errors.New("openai: model is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 800
	}

	return &Client{
		cli:       oa.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
		recorder:  recorder,
		observer:  observer,
		log:       log.With().Str("component", "openai").Str("model", cfg.Model).Logger(),
	}, nil
}

// ClassifyIntent asks the model to either call one tool or reply directly
func (c *Client) ClassifyIntent(ctx context.Context, req advisor.IntentRequest) (*advisor.Intent, error) {
	params := oa.ChatCompletionNewParams{
		Model:             c.model,
		Messages:          buildMessages(req.SystemPrompt, req.Messages),
		Tools:             buildTools(req.Tools),
		ParallelToolCalls: oa.Bool(false),
		MaxTokens:         oa.Int(c.maxTokens),
		Temperature:       oa.Float(0),
	}

	resp, err := c.complete(ctx, req.RequestID, OperationClassifyIntent, "", params)
	if err != nil {
		return nil, err
	}

	msg := resp.Choices[0].Message
	intent := &advisor.Intent{Reply: msg.Content}
	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		intent.ToolCall = &advisor.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		}
		if len(msg.ToolCalls) > 1 {
			c.log.Warn().
				Str("request_id", req.RequestID).
				Int("tool_calls", len(msg.ToolCalls)).
				Msg("Model returned several tool calls, using the first")
		}
	}
	return intent, nil
}

// Narrate asks the model to explain an engine result
func (c *Client) Narrate(ctx context.Context, req advisor.NarrationRequest) (string, error) {
	messages := buildMessages(req.SystemPrompt, req.Messages)
	messages = append(messages, oa.UserMessage(
		fmt.Sprintf("Result of %s:\n%s\nExplain this result to me.", req.Tool, req.Result),
	))

	params := oa.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   oa.Int(c.maxTokens),
		Temperature: oa.Float(0.3),
	}

	resp, err := c.complete(ctx, req.RequestID, OperationNarrate, string(req.Tool), params)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// complete runs one completion and records it. An empty toolName is
// filled from the response's first tool call, if any.
func (c *Client) complete(
	ctx context.Context,
	requestID, operation, toolName string,
	params oa.ChatCompletionNewParams,
) (*oa.ChatCompletion, error) {
	start := time.Now()
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err == nil && len(resp.Choices) == 0 {
		err = ErrEmptyResponse
	}
	latency := time.Since(start)

	call := inference.CallParams{
		RequestID: requestID,
		Provider:  provider,
		Model:     c.model,
		Operation: operation,
		ToolName:  toolName,
		Latency:   latency,
		Err:       err,
	}
	if resp != nil {
		call.PromptTokens = resp.Usage.PromptTokens
		call.CompletionTokens = resp.Usage.CompletionTokens
		call.TotalTokens = resp.Usage.TotalTokens
		if call.ToolName == "" && len(resp.Choices) > 0 && len(resp.Choices[0].Message.ToolCalls) > 0 {
			call.ToolName = resp.Choices[0].Message.ToolCalls[0].Function.Name
		}
	}

	if c.recorder != nil {
		c.recorder.LogCall(call)
	}
	if c.observer != nil {
		c.observer.ObserveLLMCall(operation, latency, err)
	}

	if err != nil {
		ev := c.log.Error().Err(err).
			Str("request_id", requestID).
			Str("operation", operation).
			Dur("latency", latency)
		var apiErr *oa.Error
		if errors.As(err, &apiErr) {
			ev = ev.Int("status_code", apiErr.StatusCode)
		}
		ev.Msg("OpenAI call failed")
		return nil, fmt.Errorf("openai %s: %w", operation, err)
	}

	c.log.Debug().
		Str("request_id", requestID).
		Str("operation", operation).
		Int64("total_tokens", call.TotalTokens).
		Dur("latency", latency).
		Msg("OpenAI call completed")
	return resp, nil
}

func buildMessages(system string, history []advisor.Message) []oa.ChatCompletionMessageParamUnion {
	out := make([]oa.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if system != "" {
		out = append(out, oa.SystemMessage(system))
	}
	for _, m := range history {
		switch m.Role {
		case advisor.RoleAssistant:
			out = append(out, oa.AssistantMessage(m.Content))
		case advisor.RoleSystem:
			out = append(out, oa.SystemMessage(m.Content))
		default:
			out = append(out, oa.UserMessage(m.Content))
		}
	}
	return out
}

func buildTools(defs []advisor.ToolDefinition) []oa.ChatCompletionToolParam {
	if len(defs) == 0 {
		return nil
	}
	out := make([]oa.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, oa.ChatCompletionToolParam{
			Function: oa.FunctionDefinitionParam{
				Name:        string(def.Name),
				Description: oa.String(def.Description),
				Parameters:  oa.FunctionParameters(def.Parameters),
			},
		})
	}
	return out
}
