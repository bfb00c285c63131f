package gcs

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/storage"
	"github.com/smallbiznis/detailflow/internal/config"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iamcredentials/v1"
	"google.golang.org/api/option"
)

// signer holds either a private key or an IAM SignBlob callback for V4 URLs.
type signer struct {
	accessID   string
	privateKey []byte
	signBytes  func([]byte) ([]byte, error)
}

func (s *signer) options() *storage.SignedURLOptions {
	return &storage.SignedURLOptions{
		GoogleAccessID: s.accessID,
		PrivateKey:     s.privateKey,
		SignBytes:      s.signBytes,
	}
}

func newSigner(ctx context.Context, cfg config.StorageConfig) (*signer, error) {
	if cfg.GCSCredentialsJSON != "" {
		email, key, err := parseServiceAccount(cfg.GCSCredentialsJSON)
		if err != nil {
			return nil, err
		}
		return &signer{accessID: email, privateKey: key}, nil
	}
	if cfg.GCSSignerEmail != "" && cfg.GCSSignerKey != "" {
		return &signer{accessID: cfg.GCSSignerEmail, privateKey: []byte(cfg.GCSSignerKey)}, nil
	}
	return iamSigner(ctx, cfg.GCSSignerEmail)
}

// iamSigner signs through the IAM credentials API with application default credentials.
func iamSigner(ctx context.Context, email string) (*signer, error) {
	if email == "" && metadata.OnGCE() {
		defaultEmail, err := metadata.Email("default")
		if err != nil {
			return nil, fmt.Errorf("failed to get default service account email: %w", err)
		}
		email = defaultEmail
	}
	if email == "" {
		return nil, errors.New("GCS_SIGNER_EMAIL is required when no private key is provided")
	}

	creds, err := google.FindDefaultCredentials(ctx, iamcredentials.CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load ADC credentials: %w", err)
	}
	svc, err := iamcredentials.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create iamcredentials service: %w", err)
	}

	resource := fmt.Sprintf("projects/-/serviceAccounts/%s", email)
	return &signer{
		accessID: email,
		signBytes: func(data []byte) ([]byte, error) {
			resp, err := svc.Projects.ServiceAccounts.SignBlob(resource, &iamcredentials.SignBlobRequest{
				Payload: base64.StdEncoding.EncodeToString(data),
			}).Do()
			if err != nil {
				return nil, err
			}
			return base64.StdEncoding.DecodeString(resp.SignedBlob)
		},
	}, nil
}
