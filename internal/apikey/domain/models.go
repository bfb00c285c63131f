package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// APIKey stores hashed staff credentials scoped to an organization.
type APIKey struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	OrgID      uuid.UUID    `gorm:"column:org_id;type:uuid;not null"`
	KeyID      string       `gorm:"column:key_id;type:text;not null;uniqueIndex"`
	Name       string       `gorm:"type:text;not null"`
	Role       string       `gorm:"type:text;not null"`
	KeyHash    string       `gorm:"column:key_hash;type:text;not null;uniqueIndex"`
	IsActive   bool         `gorm:"column:is_active;not null;default:true"`
	LastUsedAt *time.Time   `gorm:"column:last_used_at"`
	ExpiresAt  *time.Time   `gorm:"column:expires_at"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }

func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}
