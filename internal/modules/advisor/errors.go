package advisor

import "errors"

// Chat errors
var (
	// ErrInvalidRequest reports a malformed chat request
	ErrInvalidRequest = errors.New("invalid chat request")
	// ErrAssistantUnavailable means no language model is configured
	ErrAssistantUnavailable = errors.New("assistant unavailable")
	// ErrAssistantFailed wraps a failed language-model call
	ErrAssistantFailed = errors.New("assistant call failed")
	// ErrUnknownTool means the model asked for a tool that was never declared
	ErrUnknownTool = errors.New("unknown tool")
	// ErrBadToolArguments means the model's tool arguments could not be used
	ErrBadToolArguments = errors.New("bad tool arguments")
)
