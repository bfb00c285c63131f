package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Customer struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"org_id"`
	FirstName     string          `gorm:"not null" json:"first_name"`
	LastName      string          `gorm:"not null" json:"last_name"`
	Email         string          `gorm:"not null" json:"email"`
	Phone         string          `gorm:"not null" json:"phone"`
	Address       string          `gorm:"not null;default:''" json:"address"`
	Notes         *string         `json:"notes,omitempty"`
	LifetimeSpend decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"lifetime_spend"`
	VisitCount    int             `gorm:"not null;default:0" json:"visit_count"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}
