package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/smallbiznis/detailflow/internal/vehicle/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, vehicle *domain.Vehicle) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO vehicles (id, org_id, customer_id, year, make, model, color, vin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		vehicle.ID,
		vehicle.OrgID,
		vehicle.CustomerID,
		vehicle.Year,
		vehicle.Make,
		vehicle.Model,
		vehicle.Color,
		vehicle.VIN,
		vehicle.CreatedAt,
		vehicle.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id uuid.UUID) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, customer_id, year, make, model, color, vin, created_at, updated_at
		 FROM vehicles WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&vehicle).Error
	if err != nil {
		return nil, err
	}
	if vehicle.ID == uuid.Nil {
		return nil, nil
	}
	return &vehicle, nil
}
