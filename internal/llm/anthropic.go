package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

const DefaultAnthropicModel = "claude-haiku-4-5-20251001"

type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

func NewAnthropic(apiKey, baseURL, model string) *AnthropicClient {
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &client, model: model}
}

func (c *AnthropicClient) Model() string { return c.model }

// buildParams lifts system messages into the dedicated System field; the
// messages API only accepts user/assistant turns.
func (c *AnthropicClient) buildParams(req Request) anthropic.MessageNewParams {
	var system []string
	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if req.JSONMode {
		system = append(system, "Respond with a single JSON object and nothing else.")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    msgs,
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}
	return params
}

func (c *AnthropicClient) Generate(ctx context.Context, req Request) (Response, error) {
	msg, err := c.client.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return Response{}, fmt.Errorf("anthropic generate: %w", err)
	}
	var content strings.Builder
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(b.Text)
		}
	}
	if content.Len() == 0 {
		return Response{}, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}
	return Response{
		Content: content.String(),
		Model:   string(msg.Model),
		Usage: Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

func (c *AnthropicClient) Stream(ctx context.Context, req Request) (Stream, error) {
	s := c.client.Messages.NewStreaming(ctx, c.buildParams(req))
	return &anthropicStream{stream: s}, nil
}

type anthropicStream struct {
	stream       *ssestream.Stream[anthropic.MessageStreamEventUnion]
	current      Delta
	inputTokens  int
	outputTokens int
}

func (s *anthropicStream) Next() bool {
	for s.stream.Next() {
		event := s.stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			s.inputTokens = int(ev.Message.Usage.InputTokens)
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				s.current = Delta{Text: delta.Text}
				return true
			}
		case anthropic.MessageDeltaEvent:
			s.outputTokens = int(ev.Usage.OutputTokens)
		case anthropic.MessageStopEvent:
			s.current = Delta{Usage: &Usage{
				PromptTokens:     s.inputTokens,
				CompletionTokens: s.outputTokens,
				TotalTokens:      s.inputTokens + s.outputTokens,
			}}
			return true
		}
	}
	return false
}

func (s *anthropicStream) Current() Delta { return s.current }

func (s *anthropicStream) Err() error {
	if err := s.stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream: %w", err)
	}
	return nil
}

func (s *anthropicStream) Close() error { return s.stream.Close() }
