package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("llm returned empty response")

type Message struct {
	Role    string
	Content string
}

// Request carries the generation parameters of a single completion.
// Whether the call streams is decided by the Client method used.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
	// JSONMode asks the provider for a single JSON object response.
	JSONMode bool
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Delta is one element of a streamed completion. The last element may carry
// token usage; providers are not required to send it.
type Delta struct {
	Text  string
	Usage *Usage
}

// Stream is consumed item by item: call Next until it returns false, then check Err.
type Stream interface {
	Next() bool
	Current() Delta
	Err() error
	Close() error
}

type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Stream(ctx context.Context, req Request) (Stream, error)
	Model() string
}

// System and User build the two-message conversation used by every prompt in the app.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message   { return Message{Role: RoleUser, Content: content} }
