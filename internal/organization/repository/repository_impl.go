package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/smallbiznis/detailflow/internal/organization/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateOrganization(ctx context.Context, org domain.Organization) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO organizations (id, name, slug, business_email, phone, website, city, state, subscription_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		org.ID,
		org.Name,
		org.Slug,
		org.BusinessEmail,
		org.Phone,
		org.Website,
		org.City,
		org.State,
		org.SubscriptionStatus,
		org.CreatedAt,
		org.UpdatedAt,
	).Error
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, slug, business_email, phone, website, city, state, subscription_status, created_at, updated_at
		 FROM organizations WHERE slug = ?`,
		slug,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == uuid.Nil {
		return nil, nil
	}
	return &org, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, slug, business_email, phone, website, city, state, subscription_status, created_at, updated_at
		 FROM organizations WHERE id = ?`,
		id,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == uuid.Nil {
		return nil, nil
	}
	return &org, nil
}

func (r *repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM organizations WHERE slug = ?`,
		slug,
	).Scan(&count).Error
	return count > 0, err
}
