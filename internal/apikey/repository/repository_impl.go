package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	apikeydomain "github.com/smallbiznis/detailflow/internal/apikey/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() apikeydomain.Repository {
	return &repo{}
}

const selectColumns = `id, org_id, key_id, name, role, key_hash, is_active, last_used_at, expires_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, key *apikeydomain.APIKey) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO api_keys (id, org_id, key_id, name, role, key_hash, is_active, last_used_at, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID,
		key.OrgID,
		key.KeyID,
		key.Name,
		key.Role,
		key.KeyHash,
		key.IsActive,
		key.LastUsedAt,
		key.ExpiresAt,
		key.CreatedAt,
		key.UpdatedAt,
	).Error
}

func (r *repo) FindByKeyID(ctx context.Context, db *gorm.DB, orgID uuid.UUID, keyID string) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM api_keys WHERE org_id = ? AND key_id = ?`,
		orgID,
		keyID,
	).Scan(&key).Error
	if err != nil {
		return nil, err
	}
	if key.ID == 0 {
		return nil, nil
	}
	return &key, nil
}

func (r *repo) FindByHash(ctx context.Context, db *gorm.DB, keyHash string) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM api_keys WHERE key_hash = ?`,
		keyHash,
	).Scan(&key).Error
	if err != nil {
		return nil, err
	}
	if key.ID == 0 {
		return nil, nil
	}
	return &key, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID uuid.UUID) ([]apikeydomain.APIKey, error) {
	var keys []apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM api_keys WHERE org_id = ? ORDER BY created_at DESC`,
		orgID,
	).Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, orgID uuid.UUID, keyID string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE api_keys SET is_active = ?, updated_at = ?, expires_at = COALESCE(expires_at, ?)
		 WHERE org_id = ? AND key_id = ?`,
		false,
		now,
		now,
		orgID,
		keyID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) TouchLastUsed(ctx context.Context, db *gorm.DB, id int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`,
		now,
		id,
	).Error
}
