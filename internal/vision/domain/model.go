package domain

import (
	"context"
	"errors"
)

// Model is a multimodal completion endpoint that answers with text.
type Model interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

type Request struct {
	Model     string
	System    string
	Prompt    string
	Images    []Image
	MaxTokens int64
}

// Image is an inline photo. Data holds the raw bytes, not base64.
type Image struct {
	MediaType string
	Data      []byte
}

var (
	ErrNoTextContent = errors.New("no_text_content")
	ErrNotConfigured = errors.New("vision_not_configured")
)
