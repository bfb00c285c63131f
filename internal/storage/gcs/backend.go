// Package gcs stores photos in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/smallbiznis/detailflow/internal/storage/domain"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type Backend struct {
	bucket string
	client *storage.Client
	signer *signer
	now    func() time.Time
}

type serviceAccountJSON struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

func New(ctx context.Context, cfg config.StorageConfig) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	var opts []option.ClientOption
	if cfg.GCSCredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.GCSCredentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}

	s, err := newSigner(ctx, cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Backend{bucket: cfg.Bucket, client: client, signer: s, now: time.Now}, nil
}

func (b *Backend) Name() string { return config.StorageProviderGCS }

func (b *Backend) Close() error { return b.client.Close() }

func (b *Backend) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	opts := b.signer.options()
	opts.Scheme = storage.SigningSchemeV4
	opts.Method = http.MethodPut
	opts.Expires = b.now().Add(expires)
	opts.ContentType = contentType
	return storage.SignedURL(b.bucket, key, opts)
}

func (b *Backend) Get(ctx context.Context, key string, maxBytes int64) (*domain.Object, error) {
	reader, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, &domain.FetchError{Key: key, Reason: classify(err), Err: err}
	}
	defer reader.Close()

	if reader.Attrs.Size > maxBytes {
		return nil, &domain.FetchError{Key: key, Reason: domain.ReasonTooLarge}
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, &domain.FetchError{Key: key, Reason: domain.ReasonTransport, Err: err}
	}
	return &domain.Object{
		Key:         key,
		ContentType: reader.Attrs.ContentType,
		Data:        data,
	}, nil
}

func classify(err error) string {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return domain.ReasonNotFound
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return domain.ReasonNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			return domain.ReasonForbidden
		}
	}
	return domain.ReasonTransport
}

func parseServiceAccount(raw string) (string, []byte, error) {
	var key serviceAccountJSON
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return "", nil, fmt.Errorf("invalid GCS_CREDENTIALS_JSON: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return "", nil, errors.New("GCS_CREDENTIALS_JSON missing client_email or private_key")
	}
	return key.ClientEmail, []byte(key.PrivateKey), nil
}
