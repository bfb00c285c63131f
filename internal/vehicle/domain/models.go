package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Vehicle struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID      uuid.UUID `gorm:"type:uuid;not null;index" json:"org_id"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null" json:"customer_id"`
	Year       int       `gorm:"not null" json:"year"`
	Make       string    `gorm:"not null" json:"make"`
	Model      string    `gorm:"not null" json:"model"`
	Color      string    `gorm:"not null" json:"color"`
	VIN        *string   `gorm:"column:vin" json:"vin,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Vehicle) TableName() string { return "vehicles" }

// Descriptor is the free-form vehicle description sent alongside photos.
type Descriptor struct {
	Year  string
	Make  string
	Model string
	Color string
}

func (v Vehicle) Descriptor() Descriptor {
	year := ""
	if v.Year > 0 {
		year = fmt.Sprintf("%d", v.Year)
	}
	return Descriptor{Year: year, Make: v.Make, Model: v.Model, Color: v.Color}
}

// IsBlank reports whether no field carries a value.
func (d Descriptor) IsBlank() bool {
	return strings.TrimSpace(d.Year) == "" &&
		strings.TrimSpace(d.Make) == "" &&
		strings.TrimSpace(d.Model) == "" &&
		strings.TrimSpace(d.Color) == ""
}

// String renders "<year> <make> <model> in <color>".
func (d Descriptor) String() string {
	return fmt.Sprintf("%s %s %s in %s",
		strings.TrimSpace(d.Year),
		strings.TrimSpace(d.Make),
		strings.TrimSpace(d.Model),
		strings.TrimSpace(d.Color),
	)
}
