package domain

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductCursor resumes a name-ordered product listing.
type ProductCursor struct {
	Name string
	ID   uuid.UUID
}

type Repository interface {
	InsertProduct(ctx context.Context, db *gorm.DB, product *Product) error
	FindProduct(ctx context.Context, db *gorm.DB, orgID, id uuid.UUID) (*Product, error)
	// ListActiveProducts returns up to limit active products after cursor, ordered by name then id.
	ListActiveProducts(ctx context.Context, db *gorm.DB, orgID uuid.UUID, cursor *ProductCursor, limit int) ([]Product, error)

	InsertUsage(ctx context.Context, db *gorm.DB, usage *UsageLog) error
	ListUsageByJob(ctx context.Context, db *gorm.DB, orgID, jobID uuid.UUID) ([]UsageLog, error)
}
