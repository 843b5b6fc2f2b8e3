package llm

import (
	"context"
	"fmt"

	"github.com/Morwran/yagpt"
)

// YandexClient talks to YandexGPT. The yagpt client has no streaming endpoint
// and no per-request sampling knobs, so Stream replays the full answer as one delta.
type YandexClient struct {
	ya       yagpt.YaGPTFace
	iamToken string
}

func NewYandex(oauthToken, folderID string) (*YandexClient, error) {
	// Create IAM token from OAuth token
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init yandex iam: %w", err)
	}
	resp, err := iam.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create iam token: %w", err)
	}

	// Create YaGPT client for a folder
	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to init yagpt: %w", err)
	}

	return &YandexClient{
		ya:       ya,
		iamToken: resp.IamToken,
	}, nil
}

func (c *YandexClient) Model() string { return yagpt.YaModelLite }

func (c *YandexClient) Generate(ctx context.Context, req Request) (Response, error) {
	messages := make([]yagpt.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, yagpt.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := c.ya.CompletionWithCtx(ctx, c.iamToken, messages)
	if err != nil {
		return Response{}, fmt.Errorf("yagpt completion failed: %w", err)
	}
	if resp == nil || len(resp.Alternatives) == 0 {
		return Response{}, fmt.Errorf("yagpt: %w", ErrEmptyResponse)
	}
	return Response{
		Content: resp.Alternatives[0].Message.Content,
		Model:   yagpt.YaModelLite,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.InputTextTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func (c *YandexClient) Stream(ctx context.Context, req Request) (Stream, error) {
	resp, err := c.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	usage := resp.Usage
	return NewSliceStream([]Delta{{Text: resp.Content, Usage: &usage}}, nil), nil
}
