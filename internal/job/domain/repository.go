package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, job *Job) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id uuid.UUID) (*Job, error)
	// UpdateStage moves the job only if it is still in from. It returns the affected row count.
	UpdateStage(ctx context.Context, db *gorm.DB, orgID, id uuid.UUID, from, to Stage, history datatypes.JSONSlice[StageHistoryEntry], now time.Time) (int64, error)
	SaveAssessment(ctx context.Context, db *gorm.DB, orgID, id uuid.UUID, payload datatypes.JSON, version int, now time.Time) (int64, error)
}
