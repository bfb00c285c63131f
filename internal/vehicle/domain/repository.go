package domain

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, vehicle *Vehicle) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id uuid.UUID) (*Vehicle, error)
}
