package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryCompound Category = "compound"
	CategoryPolish   Category = "polish"
	CategoryCoating  Category = "coating"
	CategoryCleaner  Category = "cleaner"
	CategoryDressing Category = "dressing"
	CategoryPad      Category = "pad"
	CategoryTowel    Category = "towel"
	CategoryOther    Category = "other"
)

type UnitMeasure string

const (
	UnitOunce      UnitMeasure = "oz"
	UnitMilliliter UnitMeasure = "ml"
	UnitEach       UnitMeasure = "each"
)

const (
	costPerUnitPlaces = 4
	totalCostPlaces   = 2
)

type Product struct {
	ID            uuid.UUID       `gorm:"column:id"`
	OrgID         uuid.UUID       `gorm:"column:org_id"`
	Name          string          `gorm:"column:name"`
	Brand         *string         `gorm:"column:brand"`
	Category      Category        `gorm:"column:category"`
	PurchasePrice decimal.Decimal `gorm:"column:purchase_price"`
	UnitSize      decimal.Decimal `gorm:"column:unit_size"`
	UnitMeasure   UnitMeasure     `gorm:"column:unit_measure"`
	CostPerUnit   decimal.Decimal `gorm:"column:cost_per_unit"`
	Supplier      *string         `gorm:"column:supplier"`
	IsActive      bool            `gorm:"column:is_active"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}

type UsageLog struct {
	ID           uuid.UUID       `gorm:"column:id"`
	OrgID        uuid.UUID       `gorm:"column:org_id"`
	JobID        uuid.UUID       `gorm:"column:job_id"`
	ProductID    uuid.UUID       `gorm:"column:product_id"`
	ProductName  string          `gorm:"column:product_name;->"`
	QuantityUsed decimal.Decimal `gorm:"column:quantity_used"`
	UnitMeasure  UnitMeasure     `gorm:"column:unit_measure"`
	TotalCost    decimal.Decimal `gorm:"column:total_cost"`
	LoggedAt     time.Time       `gorm:"column:logged_at"`
}

// CostPerUnit is the purchase price spread over the container size.
func CostPerUnit(purchasePrice, unitSize decimal.Decimal) decimal.Decimal {
	if !unitSize.IsPositive() {
		return decimal.Zero
	}
	return purchasePrice.DivRound(unitSize, costPerUnitPlaces)
}

// UsageCost prices quantity at costPerUnit, rounded to cents.
func UsageCost(quantity, costPerUnit decimal.Decimal) decimal.Decimal {
	return quantity.Mul(costPerUnit).Round(totalCostPlaces)
}
