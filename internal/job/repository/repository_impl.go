package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/detailflow/internal/job/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const selectColumns = `id, org_id, vehicle_id, customer_id, stage, photos, ai_assessment, ai_assessment_version,
	detailer_adjustments, estimate_amount, final_amount, notes, stage_history, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, job *domain.Job) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO jobs (id, org_id, vehicle_id, customer_id, stage, photos, notes, stage_history, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.OrgID,
		job.VehicleID,
		job.CustomerID,
		job.Stage,
		job.Photos,
		job.Notes,
		job.StageHistory,
		job.CreatedAt,
		job.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id uuid.UUID) (*domain.Job, error) {
	var job domain.Job
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM jobs WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *repo) UpdateStage(ctx context.Context, db *gorm.DB, orgID, id uuid.UUID, from, to domain.Stage, history datatypes.JSONSlice[domain.StageHistoryEntry], now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE jobs SET stage = ?, stage_history = ?, updated_at = ?
		 WHERE org_id = ? AND id = ? AND stage = ?`,
		to,
		history,
		now,
		orgID,
		id,
		from,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) SaveAssessment(ctx context.Context, db *gorm.DB, orgID, id uuid.UUID, payload datatypes.JSON, version int, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE jobs SET ai_assessment = ?, ai_assessment_version = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		payload,
		version,
		now,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}
