package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/detailflow/pkg/db/pagination"
)

type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResponse, error)
	ListProducts(ctx context.Context, req ListProductsRequest) (*ListProductsResponse, error)
	LogUsage(ctx context.Context, req LogUsageRequest) (*UsageResponse, error)
	JobCosts(ctx context.Context, jobID string) (*CostSummary, error)
}

type CreateProductRequest struct {
	Name          string  `json:"name" validate:"required,notblank"`
	Brand         *string `json:"brand"`
	Category      string  `json:"category" validate:"required,oneof=compound polish coating cleaner dressing pad towel other"`
	PurchasePrice string  `json:"purchasePrice" validate:"required"`
	UnitSize      string  `json:"unitSize" validate:"required"`
	UnitMeasure   string  `json:"unitMeasure" validate:"required,oneof=oz ml each"`
	Supplier      *string `json:"supplier"`
}

type ListProductsRequest struct {
	pagination.Pagination
}

type ListProductsResponse struct {
	pagination.PageInfo
	Products []ProductResponse `json:"products"`
}

type LogUsageRequest struct {
	JobID        string `json:"-"`
	ProductID    string `json:"productId" validate:"required,uuid"`
	QuantityUsed string `json:"quantityUsed" validate:"required"`
}

type ProductResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Brand         *string   `json:"brand,omitempty"`
	Category      string    `json:"category"`
	PurchasePrice string    `json:"purchase_price"`
	UnitSize      string    `json:"unit_size"`
	UnitMeasure   string    `json:"unit_measure"`
	CostPerUnit   string    `json:"cost_per_unit"`
	Supplier      *string   `json:"supplier,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type UsageResponse struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	QuantityUsed string    `json:"quantity_used"`
	UnitMeasure  string    `json:"unit_measure"`
	TotalCost    string    `json:"total_cost"`
	LoggedAt     time.Time `json:"logged_at"`
}

type CostSummary struct {
	JobID     string          `json:"job_id"`
	Usage     []UsageResponse `json:"usage"`
	TotalCost string          `json:"total_cost"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidJobID        = errors.New("invalid_job_id")
	ErrJobNotFound         = errors.New("job_not_found")
	ErrProductNotFound     = errors.New("product_not_found")
)
