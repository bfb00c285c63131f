// Package r2 stores photos in Cloudflare R2 or any S3-compatible bucket.
package r2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/smallbiznis/detailflow/internal/storage/domain"
)

type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Backend struct {
	name      string
	bucket    string
	client    objectAPI
	presigner *s3.PresignClient
}

func New(cfg config.StorageConfig) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("storage access key id and secret are required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.R2AccountID == "" {
			return nil, errors.New("R2_ACCOUNT_ID or S3_ENDPOINT is required")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: true,
	})

	name := cfg.Provider
	if name == "" {
		name = config.StorageProviderR2
	}
	return &Backend{
		name:      name,
		bucket:    cfg.Bucket,
		client:    client,
		presigner: s3.NewPresignClient(client),
	}, nil
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	req, err := b.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (b *Backend) Get(ctx context.Context, key string, maxBytes int64) (*domain.Object, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &domain.FetchError{Key: key, Reason: classify(err), Err: err}
	}
	defer out.Body.Close()

	if out.ContentLength != nil && *out.ContentLength > maxBytes {
		return nil, &domain.FetchError{Key: key, Reason: domain.ReasonTooLarge}
	}

	data, err := io.ReadAll(io.LimitReader(out.Body, maxBytes+1))
	if err != nil {
		return nil, &domain.FetchError{Key: key, Reason: domain.ReasonTransport, Err: err}
	}
	return &domain.Object{
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Data:        data,
	}, nil
}

func classify(err error) string {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return domain.ReasonNotFound
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return domain.ReasonNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			return domain.ReasonForbidden
		}
	}
	return domain.ReasonTransport
}
