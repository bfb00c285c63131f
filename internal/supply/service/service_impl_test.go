package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/detailflow/internal/clock"
	jobrepository "github.com/smallbiznis/detailflow/internal/job/repository"
	"github.com/smallbiznis/detailflow/internal/orgcontext"
	"github.com/smallbiznis/detailflow/internal/supply/domain"
	"github.com/smallbiznis/detailflow/internal/supply/repository"
	"github.com/smallbiznis/detailflow/internal/testutil"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
	"github.com/smallbiznis/detailflow/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	ctx   context.Context
	orgID uuid.UUID
	jobID uuid.UUID
	clock *clock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	orgID := testutil.SeedOrg(t, db, "Shine Bros", "shine-bros")
	jobID := testutil.SeedJob(t, db, orgID)

	fake := clock.NewFakeClock(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Clock:   fake,
		Repo:    repository.Provide(),
		JobRepo: jobrepository.Provide(),
	})
	return fixture{
		svc:   svc,
		db:    db,
		ctx:   orgcontext.WithOrgID(context.Background(), orgID),
		orgID: orgID,
		jobID: jobID,
		clock: fake,
	}
}

func (f fixture) product(t *testing.T, name, price, size string) *domain.ProductResponse {
	t.Helper()
	resp, err := f.svc.CreateProduct(f.ctx, domain.CreateProductRequest{
		Name:          name,
		Category:      "polish",
		PurchasePrice: price,
		UnitSize:      size,
		UnitMeasure:   "oz",
	})
	require.NoError(t, err)
	return resp
}

func TestCostArithmetic(t *testing.T) {
	cpu := domain.CostPerUnit(decimal.RequireFromString("24.99"), decimal.RequireFromString("16"))
	assert.Equal(t, "1.5619", cpu.StringFixed(4))

	total := domain.UsageCost(decimal.RequireFromString("2.5"), cpu)
	assert.Equal(t, "3.90", total.StringFixed(2))

	assert.True(t, domain.CostPerUnit(decimal.NewFromInt(10), decimal.Zero).IsZero())
}

func TestCreateProductDerivesCostPerUnit(t *testing.T) {
	f := newFixture(t)
	brand := "  Meguiar's "

	resp, err := f.svc.CreateProduct(f.ctx, domain.CreateProductRequest{
		Name:          " Ultimate Compound ",
		Brand:         &brand,
		Category:      "Compound",
		PurchasePrice: "24.99",
		UnitSize:      "16",
		UnitMeasure:   "OZ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ultimate Compound", resp.Name)
	require.NotNil(t, resp.Brand)
	assert.Equal(t, "Meguiar's", *resp.Brand)
	assert.Equal(t, "compound", resp.Category)
	assert.Equal(t, "oz", resp.UnitMeasure)
	assert.Equal(t, "24.99", resp.PurchasePrice)
	assert.Equal(t, "1.5619", resp.CostPerUnit)
	assert.True(t, resp.IsActive)
}

func TestCreateProductValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateProduct(f.ctx, domain.CreateProductRequest{
		Name:          " ",
		Category:      "wax",
		PurchasePrice: "abc",
		UnitSize:      "0",
		UnitMeasure:   "gallon",
	})
	verrs, ok := validation.As(err)
	require.True(t, ok, "expected validation errors, got %v", err)
	for _, field := range []string{"name", "category", "purchasePrice", "unitSize", "unitMeasure"} {
		assert.True(t, verrs.Has(field), field)
	}

	_, err = f.svc.CreateProduct(context.Background(), domain.CreateProductRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestListProductsPaginatesByName(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"Towel", "Compound", "Polish", "Coating", "Cleaner"} {
		f.product(t, name, "10", "1")
	}
	require.NoError(t, f.db.Exec(`UPDATE products SET is_active = ? WHERE name = ?`, false, "Cleaner").Error)

	other := testutil.SeedOrg(t, f.db, "Other", "other")
	_, err := f.svc.CreateProduct(orgcontext.WithOrgID(context.Background(), other), domain.CreateProductRequest{
		Name: "Apex", Category: "pad", PurchasePrice: "5", UnitSize: "1", UnitMeasure: "each",
	})
	require.NoError(t, err)

	page, err := f.svc.ListProducts(f.ctx, domain.ListProductsRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Coating", "Compound"}, names(page.Products))
	require.True(t, page.HasMore)

	page, err = f.svc.ListProducts(f.ctx, domain.ListProductsRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Polish", "Towel"}, names(page.Products))
	assert.False(t, page.HasMore)

	_, err = f.svc.ListProducts(f.ctx, domain.ListProductsRequest{Pagination: pagination.Pagination{PageToken: "garbage"}})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

func TestLogUsageAndJobCosts(t *testing.T) {
	f := newFixture(t)
	compound := f.product(t, "Compound", "24.99", "16")
	coating := f.product(t, "Coating", "89.00", "50")

	first, err := f.svc.LogUsage(f.ctx, domain.LogUsageRequest{JobID: f.jobID.String(), ProductID: compound.ID, QuantityUsed: "2.5"})
	require.NoError(t, err)
	assert.Equal(t, "3.90", first.TotalCost)
	assert.Equal(t, "2.5000", first.QuantityUsed)
	assert.Equal(t, "oz", first.UnitMeasure)

	f.clock.Advance(time.Minute)
	_, err = f.svc.LogUsage(f.ctx, domain.LogUsageRequest{JobID: f.jobID.String(), ProductID: coating.ID, QuantityUsed: "3"})
	require.NoError(t, err)

	summary, err := f.svc.JobCosts(f.ctx, f.jobID.String())
	require.NoError(t, err)
	require.Len(t, summary.Usage, 2)
	assert.Equal(t, "Compound", summary.Usage[0].ProductName)
	assert.Equal(t, "5.34", summary.Usage[1].TotalCost)
	assert.Equal(t, "9.24", summary.TotalCost)
}

func TestJobCostsWithoutUsage(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.JobCosts(f.ctx, f.jobID.String())
	require.NoError(t, err)
	assert.Empty(t, summary.Usage)
	assert.Equal(t, "0.00", summary.TotalCost)

	_, err = f.svc.JobCosts(f.ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	_, err = f.svc.JobCosts(f.ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidJobID)
}

func TestLogUsageRejects(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Compound", "24.99", "16")

	_, err := f.svc.LogUsage(f.ctx, domain.LogUsageRequest{JobID: f.jobID.String(), ProductID: p.ID, QuantityUsed: "0"})
	verrs, ok := validation.As(err)
	require.True(t, ok)
	assert.True(t, verrs.Has("quantityUsed"))

	_, err = f.svc.LogUsage(f.ctx, domain.LogUsageRequest{JobID: f.jobID.String(), ProductID: "x", QuantityUsed: "1"})
	verrs, ok = validation.As(err)
	require.True(t, ok)
	assert.True(t, verrs.Has("productId"))

	_, err = f.svc.LogUsage(f.ctx, domain.LogUsageRequest{JobID: f.jobID.String(), ProductID: uuid.NewString(), QuantityUsed: "1"})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = f.svc.LogUsage(f.ctx, domain.LogUsageRequest{JobID: uuid.NewString(), ProductID: p.ID, QuantityUsed: "1"})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	require.NoError(t, f.db.Exec(`UPDATE products SET is_active = ? WHERE id = ?`, false, p.ID).Error)
	_, err = f.svc.LogUsage(f.ctx, domain.LogUsageRequest{JobID: f.jobID.String(), ProductID: p.ID, QuantityUsed: "1"})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM usage_logs`).Scan(&count).Error)
	assert.Zero(t, count)
}

func names(items []domain.ProductResponse) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}
