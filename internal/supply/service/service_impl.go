package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/detailflow/internal/clock"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/internal/orgcontext"
	"github.com/smallbiznis/detailflow/internal/supply/domain"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
	"github.com/smallbiznis/detailflow/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    domain.Repository
	JobRepo jobdomain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	jobRepo jobdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("supply.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		jobRepo: p.JobRepo,
	}
}

func (s *Service) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.ProductResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.UnitMeasure = strings.ToLower(strings.TrimSpace(req.UnitMeasure))

	var errs validation.Errors
	if err := validation.Struct(req); err != nil {
		verrs, ok := validation.As(err)
		if !ok {
			return nil, err
		}
		errs = verrs
	}
	price := parseAmount(&errs, "purchasePrice", req.PurchasePrice, false)
	size := parseAmount(&errs, "unitSize", req.UnitSize, true)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	product := &domain.Product{
		ID:            uuid.New(),
		OrgID:         orgID,
		Name:          req.Name,
		Brand:         trimmedOrNil(req.Brand),
		Category:      domain.Category(req.Category),
		PurchasePrice: price.Round(2),
		UnitSize:      size.Round(4),
		UnitMeasure:   domain.UnitMeasure(req.UnitMeasure),
		Supplier:      trimmedOrNil(req.Supplier),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	product.CostPerUnit = domain.CostPerUnit(product.PurchasePrice, product.UnitSize)

	if err := s.repo.InsertProduct(ctx, s.db, product); err != nil {
		return nil, err
	}

	resp := toProductResponse(product)
	return &resp, nil
}

func (s *Service) ListProducts(ctx context.Context, req domain.ListProductsRequest) (*domain.ListProductsResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	var cursor *domain.ProductCursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, err
		}
		id, err := uuid.Parse(decoded.ID)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
		cursor = &domain.ProductCursor{Name: decoded.Sort, ID: id}
	}

	limit := req.Limit()
	items, err := s.repo.ListActiveProducts(ctx, s.db, orgID, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	items, pageInfo, err := pagination.Page(items, limit, func(p domain.Product) pagination.Cursor {
		return pagination.Cursor{ID: p.ID.String(), Sort: p.Name}
	})
	if err != nil {
		return nil, err
	}

	resp := &domain.ListProductsResponse{
		PageInfo: pageInfo,
		Products: make([]domain.ProductResponse, 0, len(items)),
	}
	for i := range items {
		resp.Products = append(resp.Products, toProductResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) LogUsage(ctx context.Context, req domain.LogUsageRequest) (*domain.UsageResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	jobID, err := uuid.Parse(strings.TrimSpace(req.JobID))
	if err != nil {
		return nil, domain.ErrInvalidJobID
	}

	req.ProductID = strings.TrimSpace(req.ProductID)
	var errs validation.Errors
	if err := validation.Struct(req); err != nil {
		verrs, ok := validation.As(err)
		if !ok {
			return nil, err
		}
		errs = verrs
	}
	quantity := parseAmount(&errs, "quantityUsed", req.QuantityUsed, true)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	productID := uuid.MustParse(req.ProductID)

	var usage *domain.UsageLog
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := s.jobRepo.FindByID(ctx, tx, orgID, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return domain.ErrJobNotFound
		}

		product, err := s.repo.FindProduct(ctx, tx, orgID, productID)
		if err != nil {
			return err
		}
		if product == nil || !product.IsActive {
			return domain.ErrProductNotFound
		}

		quantity = quantity.Round(4)
		usage = &domain.UsageLog{
			ID:           uuid.New(),
			OrgID:        orgID,
			JobID:        jobID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			QuantityUsed: quantity,
			UnitMeasure:  product.UnitMeasure,
			TotalCost:    domain.UsageCost(quantity, product.CostPerUnit),
			LoggedAt:     s.clock.Now().UTC(),
		}
		return s.repo.InsertUsage(ctx, tx, usage)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("usage logged",
		zap.String("job_id", jobID.String()),
		zap.String("product_id", productID.String()),
		zap.String("total_cost", usage.TotalCost.StringFixed(2)),
	)

	resp := toUsageResponse(usage)
	return &resp, nil
}

func (s *Service) JobCosts(ctx context.Context, id string) (*domain.CostSummary, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	jobID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidJobID
	}

	job, err := s.jobRepo.FindByID(ctx, s.db, orgID, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}

	items, err := s.repo.ListUsageByJob(ctx, s.db, orgID, jobID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	summary := &domain.CostSummary{
		JobID: jobID.String(),
		Usage: make([]domain.UsageResponse, 0, len(items)),
	}
	for i := range items {
		total = total.Add(items[i].TotalCost)
		summary.Usage = append(summary.Usage, toUsageResponse(&items[i]))
	}
	summary.TotalCost = total.StringFixed(2)
	return summary, nil
}

// parseAmount records a field error unless value is a non-negative decimal
// (strictly positive when positive is set).
func parseAmount(errs *validation.Errors, field, value string, positive bool) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		if !errs.Has(field) {
			errs.Add(field, validation.CodeInvalidFormat, "must be a decimal number")
		}
		return decimal.Zero
	}
	if amount.IsNegative() || (positive && amount.IsZero()) {
		message := "must not be negative"
		if positive {
			message = "must be greater than 0"
		}
		errs.Add(field, validation.CodeOutOfRange, message)
	}
	return amount
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toProductResponse(p *domain.Product) domain.ProductResponse {
	return domain.ProductResponse{
		ID:            p.ID.String(),
		Name:          p.Name,
		Brand:         p.Brand,
		Category:      string(p.Category),
		PurchasePrice: p.PurchasePrice.StringFixed(2),
		UnitSize:      p.UnitSize.StringFixed(4),
		UnitMeasure:   string(p.UnitMeasure),
		CostPerUnit:   p.CostPerUnit.StringFixed(4),
		Supplier:      p.Supplier,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toUsageResponse(u *domain.UsageLog) domain.UsageResponse {
	return domain.UsageResponse{
		ID:           u.ID.String(),
		JobID:        u.JobID.String(),
		ProductID:    u.ProductID.String(),
		ProductName:  u.ProductName,
		QuantityUsed: u.QuantityUsed.StringFixed(4),
		UnitMeasure:  string(u.UnitMeasure),
		TotalCost:    u.TotalCost.StringFixed(2),
		LoggedAt:     u.LoggedAt,
	}
}
