package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Gateway issues short-lived upload credentials and reads stored photos.
type Gateway interface {
	IssueUploadCredential(ctx context.Context, tenantSlug, fileName, contentType string) (*UploadCredential, error)
	FetchObject(ctx context.Context, key string) (*Object, error)
}

// Backend is a concrete object store.
type Backend interface {
	Name() string
	PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	// Get reads at most maxBytes+1 bytes so callers can detect oversized objects.
	Get(ctx context.Context, key string, maxBytes int64) (*Object, error)
}

type UploadCredential struct {
	UploadURL string            `json:"presignedUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ObjectKey string            `json:"key"`
	PublicURL string            `json:"publicUrl,omitempty"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

const (
	ReasonNotFound  = "not_found"
	ReasonForbidden = "forbidden"
	ReasonTransport = "transport"
	ReasonTooLarge  = "too_large"
)

// FetchError describes why a single object could not be read.
type FetchError struct {
	Key    string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Key, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

var (
	ErrUnsupportedContentType = errors.New("unsupported_content_type")
	ErrInvalidTenant          = errors.New("invalid_tenant")
	ErrInvalidKey             = errors.New("invalid_object_key")
	ErrPresignFailed          = errors.New("presign_failed")
)
