// Package openai calls an OpenAI-compatible chat completions endpoint.
package openai

import (
	"context"
	"encoding/base64"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/smallbiznis/detailflow/internal/vision/domain"
)

type Client struct {
	client sdk.Client
}

func New(apiKey, baseURL string, opts ...option.RequestOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.ErrNotConfigured
	}
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		base = append(base, option.WithBaseURL(baseURL))
	}
	return &Client{client: sdk.NewClient(append(base, opts...)...)}, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Complete(ctx context.Context, req domain.Request) (string, error) {
	parts := make([]sdk.ChatCompletionContentPartUnionParam, 0, len(req.Images)+1)
	parts = append(parts, sdk.TextContentPart(req.Prompt))
	for _, img := range req.Images {
		parts = append(parts, sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{
			URL: "data:" + img.MediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
		}))
	}

	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, sdk.SystemMessage(req.System))
	}
	messages = append(messages, sdk.UserMessage(parts))

	resp, err := c.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:               sdk.ChatModel(req.Model),
		MaxCompletionTokens: sdk.Int(req.MaxTokens),
		Messages:            messages,
	})
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, choice := range resp.Choices {
		out.WriteString(choice.Message.Content)
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", domain.ErrNoTextContent
	}
	return out.String(), nil
}
