// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"story-coach/internal/llm"
)

var ErrUnavailable = errors.New("llm unavailable")

// Fake answers with GenerateFunc and StreamFunc and records every request.
// A nil func makes the call fail with ErrUnavailable.
type Fake struct {
	ModelName    string
	GenerateFunc func(req llm.Request) (llm.Response, error)
	StreamFunc   func(req llm.Request) (llm.Stream, error)

	mu       sync.Mutex
	requests []llm.Request
	streams  []*llm.SliceStream
}

func (f *Fake) Model() string {
	if f.ModelName == "" {
		return "fake-model"
	}
	return f.ModelName
}

func (f *Fake) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	f.record(req)
	if err := ctx.Err(); err != nil {
		return llm.Response{}, err
	}
	if f.GenerateFunc == nil {
		return llm.Response{}, ErrUnavailable
	}
	return f.GenerateFunc(req)
}

func (f *Fake) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	f.record(req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.StreamFunc == nil {
		return nil, ErrUnavailable
	}
	s, err := f.StreamFunc(req)
	if ss, ok := s.(*llm.SliceStream); ok {
		f.mu.Lock()
		f.streams = append(f.streams, ss)
		f.mu.Unlock()
	}
	return s, err
}

func (f *Fake) record(req llm.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// Streams returns the slice streams handed out so far.
func (f *Fake) Streams() []*llm.SliceStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*llm.SliceStream(nil), f.streams...)
}

// Reply returns a GenerateFunc that always answers content.
func Reply(content string) func(llm.Request) (llm.Response, error) {
	return func(llm.Request) (llm.Response, error) {
		return llm.Response{
			Content: content,
			Usage:   llm.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		}, nil
	}
}

// Chunks returns a StreamFunc replaying the given texts without usage.
func Chunks(texts ...string) func(llm.Request) (llm.Stream, error) {
	return func(llm.Request) (llm.Stream, error) {
		deltas := make([]llm.Delta, 0, len(texts))
		for _, t := range texts {
			deltas = append(deltas, llm.Delta{Text: t})
		}
		return llm.NewSliceStream(deltas, nil), nil
	}
}

// SystemPrompt returns the first system message of req.
func SystemPrompt(req llm.Request) string {
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			return m.Content
		}
	}
	return ""
}

// UserPrompt returns the last user message of req.
func UserPrompt(req llm.Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}
