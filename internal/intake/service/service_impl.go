package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/detailflow/internal/clock"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	"github.com/smallbiznis/detailflow/internal/intake/domain"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/internal/observability/logger"
	"github.com/smallbiznis/detailflow/internal/observability/metrics"
	organizationdomain "github.com/smallbiznis/detailflow/internal/organization/domain"
	storagedomain "github.com/smallbiznis/detailflow/internal/storage/domain"
	vehicledomain "github.com/smallbiznis/detailflow/internal/vehicle/domain"
	"github.com/smallbiznis/detailflow/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Organizations organizationdomain.Service
	CustomerRepo  customerdomain.Repository
	VehicleRepo   vehicledomain.Repository
	JobRepo       jobdomain.Repository
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	organizations organizationdomain.Service
	customerRepo  customerdomain.Repository
	vehicleRepo   vehicledomain.Repository
	jobRepo       jobdomain.Repository
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("intake.service"),
		clock:         p.Clock,
		organizations: p.Organizations,
		customerRepo:  p.CustomerRepo,
		vehicleRepo:   p.VehicleRepo,
		jobRepo:       p.JobRepo,
		metrics:       p.Metrics,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.SubmitResult, error) {
	req = normalize(req)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	org, err := s.organizations.GetBySlug(ctx, req.OrgSlug)
	if err != nil {
		if errors.Is(err, organizationdomain.ErrNotFound) || errors.Is(err, organizationdomain.ErrInvalidSlug) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, err
	}

	now := s.clock.Now()
	customer := &customerdomain.Customer{
		ID:            uuid.New(),
		OrgID:         org.ID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       "",
		LifetimeSpend: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	vehicle := &vehicledomain.Vehicle{
		ID:         uuid.New(),
		OrgID:      org.ID,
		CustomerID: customer.ID,
		Year:       req.VehicleYear,
		Make:       req.VehicleMake,
		Model:      req.VehicleModel,
		Color:      req.VehicleColor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	job := &jobdomain.Job{
		ID:           uuid.New(),
		OrgID:        org.ID,
		VehicleID:    vehicle.ID,
		CustomerID:   customer.ID,
		Stage:        jobdomain.StageCreated,
		Photos:       jobdomain.PhotosFromKeys(req.PhotoKeys),
		StageHistory: datatypes.JSONSlice[jobdomain.StageHistoryEntry]{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Notes != "" {
		notes := req.Notes
		job.Notes = &notes
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.customerRepo.Insert(ctx, tx, customer); err != nil {
			return fmt.Errorf("insert customer: %w", err)
		}
		if err := s.vehicleRepo.Insert(ctx, tx, vehicle); err != nil {
			return fmt.Errorf("insert vehicle: %w", err)
		}
		if err := s.jobRepo.Insert(ctx, tx, job); err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.WithContext(ctx, s.log).Error("intake submit failed",
			zap.String("org_id", org.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordIntakeSubmitted(ctx, org.ID.String(), len(req.PhotoKeys))
	s.log.Info("intake submitted",
		zap.String("org_id", org.ID.String()),
		zap.String("job_id", job.ID.String()),
		zap.Int("photos", len(req.PhotoKeys)),
	)
	return &domain.SubmitResult{Success: true, JobID: job.ID.String()}, nil
}

func (s *Service) validate(req domain.SubmitRequest) error {
	var errs validation.Errors
	if err := validation.Struct(req); err != nil {
		fieldErrs, ok := validation.As(err)
		if !ok {
			return err
		}
		errs = fieldErrs
	}

	maxYear := s.clock.Now().Year() + 2
	if req.VehicleYear != 0 && (req.VehicleYear < domain.MinVehicleYear || req.VehicleYear > maxYear) {
		errs.Add("vehicleYear", validation.CodeOutOfRange,
			fmt.Sprintf("must be between %d and %d", domain.MinVehicleYear, maxYear))
	}

	if req.OrgSlug != "" && len(req.PhotoKeys) <= domain.MaxPhotoKeys {
		prefix := storagedomain.IntakePrefix(req.OrgSlug)
		for i, key := range req.PhotoKeys {
			field := fmt.Sprintf("photoKeys[%d]", i)
			if key == "" || errs.Has(field) {
				continue
			}
			if !strings.HasPrefix(key, prefix) || strings.Contains(key, "..") {
				errs.Add(field, validation.CodeInvalidValue, "must reference a photo uploaded for this business")
			}
		}
	}
	return errs.Err()
}

func normalize(req domain.SubmitRequest) domain.SubmitRequest {
	req.OrgSlug = strings.ToLower(strings.TrimSpace(req.OrgSlug))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.VehicleMake = strings.TrimSpace(req.VehicleMake)
	req.VehicleModel = strings.TrimSpace(req.VehicleModel)
	req.VehicleColor = strings.TrimSpace(req.VehicleColor)
	req.Notes = strings.TrimSpace(req.Notes)
	keys := make([]string, 0, len(req.PhotoKeys))
	for _, key := range req.PhotoKeys {
		keys = append(keys, strings.TrimSpace(key))
	}
	req.PhotoKeys = keys
	return req
}
