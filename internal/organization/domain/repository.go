package domain

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org Organization) error
	FindBySlug(ctx context.Context, slug string) (*Organization, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}
