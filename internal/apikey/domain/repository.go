package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	FindByKeyID(ctx context.Context, db *gorm.DB, orgID uuid.UUID, keyID string) (*APIKey, error)
	FindByHash(ctx context.Context, db *gorm.DB, keyHash string) (*APIKey, error)
	List(ctx context.Context, db *gorm.DB, orgID uuid.UUID) ([]APIKey, error)
	Deactivate(ctx context.Context, db *gorm.DB, orgID uuid.UUID, keyID string, now time.Time) (int64, error)
	TouchLastUsed(ctx context.Context, db *gorm.DB, id int64, now time.Time) error
}
