// Package domain contains persistence models for the org service.
package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubscriptionTrial    = "trial"
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// Organization represents a detailing business (tenant). The slug is immutable once created.
type Organization struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name               string    `gorm:"type:text;not null" json:"name"`
	Slug               string    `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	BusinessEmail      *string   `gorm:"column:business_email" json:"business_email,omitempty"`
	Phone              *string   `gorm:"column:phone" json:"phone,omitempty"`
	Website            *string   `gorm:"column:website" json:"website,omitempty"`
	City               *string   `gorm:"column:city" json:"city,omitempty"`
	State              *string   `gorm:"column:state" json:"state,omitempty"`
	SubscriptionStatus string    `gorm:"column:subscription_status;not null;default:trial" json:"subscription_status"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }
