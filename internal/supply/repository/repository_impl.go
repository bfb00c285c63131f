package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/smallbiznis/detailflow/internal/supply/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, org_id, name, brand, category, purchase_price, unit_size, unit_measure, cost_per_unit, supplier, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.OrgID,
		product.Name,
		product.Brand,
		product.Category,
		product.PurchasePrice,
		product.UnitSize,
		product.UnitMeasure,
		product.CostPerUnit,
		product.Supplier,
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindProduct(ctx context.Context, db *gorm.DB, orgID, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, brand, category, purchase_price, unit_size, unit_measure, cost_per_unit, supplier, is_active, created_at, updated_at
		 FROM products WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListActiveProducts(ctx context.Context, db *gorm.DB, orgID uuid.UUID, cursor *domain.ProductCursor, limit int) ([]domain.Product, error) {
	stmt := db.WithContext(ctx).
		Table("products").
		Select("id, org_id, name, brand, category, purchase_price, unit_size, unit_measure, cost_per_unit, supplier, is_active, created_at, updated_at").
		Where("org_id = ? AND is_active = ?", orgID, true)

	if cursor != nil {
		stmt = stmt.Where("(name > ? OR (name = ? AND id > ?))", cursor.Name, cursor.Name, cursor.ID)
	}

	var items []domain.Product
	if err := stmt.Order("name ASC").Order("id ASC").Limit(limit).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertUsage(ctx context.Context, db *gorm.DB, usage *domain.UsageLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO usage_logs (id, org_id, job_id, product_id, quantity_used, unit_measure, total_cost, logged_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		usage.ID,
		usage.OrgID,
		usage.JobID,
		usage.ProductID,
		usage.QuantityUsed,
		usage.UnitMeasure,
		usage.TotalCost,
		usage.LoggedAt,
	).Error
}

func (r *repo) ListUsageByJob(ctx context.Context, db *gorm.DB, orgID, jobID uuid.UUID) ([]domain.UsageLog, error) {
	var items []domain.UsageLog
	err := db.WithContext(ctx).Raw(
		`SELECT u.id, u.org_id, u.job_id, u.product_id, p.name AS product_name,
		        u.quantity_used, u.unit_measure, u.total_cost, u.logged_at
		 FROM usage_logs u
		 JOIN products p ON p.id = u.product_id AND p.org_id = u.org_id
		 WHERE u.org_id = ? AND u.job_id = ?
		 ORDER BY u.logged_at ASC, u.id ASC`,
		orgID,
		jobID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
