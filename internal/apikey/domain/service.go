package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	RoleOwner  = "owner"
	RoleStaff  = "staff"
	RoleViewer = "viewer"
)

func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleStaff, RoleViewer:
		return true
	}
	return false
}

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Create(ctx context.Context, req CreateRequest) (*SecretResponse, error)
	Revoke(ctx context.Context, keyID string) error
	// Authenticate resolves a plaintext bearer key to the principal it was issued for.
	Authenticate(ctx context.Context, rawKey string) (*Principal, error)
}

type CreateRequest struct {
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type Response struct {
	KeyID      string     `json:"key_id"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

type SecretResponse struct {
	KeyID  string `json:"key_id"`
	Role   string `json:"role"`
	APIKey string `json:"api_key"`
}

type Principal struct {
	OrgID uuid.UUID
	KeyID string
	Role  string
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrInvalidKeyID        = errors.New("invalid_key_id")
	ErrNotFound            = errors.New("api_key_not_found")
	ErrUnauthorized        = errors.New("unauthorized")
)
