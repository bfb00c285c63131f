package domain

import (
	"context"
	"errors"
)

type Service interface {
	Create(ctx context.Context, req CreateOrganizationRequest) (*OrganizationResponse, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	GetByID(ctx context.Context, id string) (*Organization, error)
}

type CreateOrganizationRequest struct {
	Name          string
	BusinessEmail string
	Phone         string
	Website       string
	City          string
	State         string
}

type OrganizationResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Slug               string `json:"slug"`
	SubscriptionStatus string `json:"subscription_status"`
}

// PublicOrganization is what the public intake page may see.
type PublicOrganization struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidSlug         = errors.New("invalid_slug")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrNotFound            = errors.New("organization_not_found")
	ErrSlugExhausted       = errors.New("slug_exhausted")
)
