// Package anthropic calls Claude through the Messages API.
package anthropic

import (
	"context"
	"encoding/base64"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/smallbiznis/detailflow/internal/vision/domain"
)

type Client struct {
	client sdk.Client
}

func New(apiKey string, opts ...option.RequestOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.ErrNotConfigured
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &Client{client: sdk.NewClient(opts...)}, nil
}

func (c *Client) Name() string { return "anthropic" }

func (c *Client) Complete(ctx context.Context, req domain.Request) (string, error) {
	content := make([]sdk.ContentBlockParamUnion, 0, len(req.Images)+1)
	content = append(content, sdk.NewTextBlock(req.Prompt))
	for _, img := range req.Images {
		content = append(content, sdk.NewImageBlockBase64(img.MediaType, base64.StdEncoding.EncodeToString(img.Data)))
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(content...)},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", domain.ErrNoTextContent
	}
	return out.String(), nil
}
