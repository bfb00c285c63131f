package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	assessmentdomain "github.com/smallbiznis/detailflow/internal/assessment/domain"
	"github.com/smallbiznis/detailflow/internal/clock"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	"github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/internal/orgcontext"
	vehicledomain "github.com/smallbiznis/detailflow/internal/vehicle/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	VehicleRepo  vehicledomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	vehicleRepo  vehicledomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("job.service"),
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		vehicleRepo:  p.VehicleRepo,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Detail, error) {
	orgID, jobID, err := s.scope(ctx, id)
	if err != nil {
		return nil, err
	}

	job, err := s.repo.FindByID(ctx, s.db, orgID, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrNotFound
	}
	return s.detail(ctx, s.db, job)
}

func (s *Service) AdvanceStage(ctx context.Context, req domain.AdvanceStageRequest) (*domain.Detail, error) {
	orgID, jobID, err := s.scope(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	target, ok := domain.ParseStage(strings.TrimSpace(req.Stage))
	if !ok {
		return nil, domain.ErrInvalidStage
	}

	var updated *domain.Job
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := s.repo.FindByID(ctx, tx, orgID, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return domain.ErrNotFound
		}

		next, ok := job.Stage.Next()
		if !ok || next != target {
			return domain.ErrInvalidStageTransition
		}

		now := s.clock.Now()
		history := make(datatypes.JSONSlice[domain.StageHistoryEntry], 0, len(job.StageHistory)+1)
		history = append(history, job.StageHistory...)
		history = append(history, domain.StageHistoryEntry{
			From:  job.Stage,
			To:    target,
			At:    now,
			Actor: req.Actor,
		})

		affected, err := s.repo.UpdateStage(ctx, tx, orgID, jobID, job.Stage, target, history, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrStageConflict
		}

		job.Stage = target
		job.StageHistory = history
		job.UpdatedAt = now
		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("job stage advanced",
		zap.String("job_id", jobID.String()),
		zap.String("stage", string(target)),
		zap.String("actor", req.Actor),
	)
	return s.detail(ctx, s.db, updated)
}

func (s *Service) Load(ctx context.Context, id uuid.UUID) (*domain.Job, *vehicledomain.Vehicle, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, nil, domain.ErrInvalidOrganization
	}

	job, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, nil, err
	}
	if job == nil {
		return nil, nil, domain.ErrNotFound
	}

	vehicle, err := s.vehicleRepo.FindByID(ctx, s.db, orgID, job.VehicleID)
	if err != nil {
		return nil, nil, err
	}
	return job, vehicle, nil
}

func (s *Service) SaveAssessment(ctx context.Context, id uuid.UUID, payload []byte, version int) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidOrganization
	}

	affected, err := s.repo.SaveAssessment(ctx, s.db, orgID, id, datatypes.JSON(payload), version, s.clock.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) scope(ctx context.Context, id string) (uuid.UUID, uuid.UUID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, domain.ErrInvalidOrganization
	}
	jobID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrInvalidJobID
	}
	return orgID, jobID, nil
}

func (s *Service) detail(ctx context.Context, db *gorm.DB, job *domain.Job) (*domain.Detail, error) {
	out := &domain.Detail{
		ID:                job.ID.String(),
		Stage:             job.Stage,
		Photos:            []domain.Photo(job.Photos),
		StageHistory:      []domain.StageHistoryEntry(job.StageHistory),
		AssessmentVersion: job.AIAssessmentVersion,
		EstimateAmount:    decimalString(job.EstimateAmount.Valid, job.EstimateAmount.Decimal.StringFixed(2)),
		FinalAmount:       decimalString(job.FinalAmount.Valid, job.FinalAmount.Decimal.StringFixed(2)),
		Notes:             job.Notes,
		CreatedAt:         job.CreatedAt,
		UpdatedAt:         job.UpdatedAt,
	}
	if out.Photos == nil {
		out.Photos = []domain.Photo{}
	}
	if out.StageHistory == nil {
		out.StageHistory = []domain.StageHistoryEntry{}
	}

	if job.AIAssessment != nil && len(*job.AIAssessment) > 0 {
		version := assessmentdomain.CurrentVersion
		if job.AIAssessmentVersion != nil {
			version = *job.AIAssessmentVersion
		}
		assessment, err := assessmentdomain.Decode(version, *job.AIAssessment)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", job.ID, err)
		}
		out.Assessment = assessment
	}

	customer, err := s.customerRepo.FindByID(ctx, db, job.OrgID, job.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		out.Customer = &domain.CustomerSummary{
			ID:    customer.ID.String(),
			Name:  customer.FullName(),
			Email: customer.Email,
			Phone: customer.Phone,
		}
	}

	vehicle, err := s.vehicleRepo.FindByID(ctx, db, job.OrgID, job.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle != nil {
		out.Vehicle = &domain.VehicleSummary{
			ID:    vehicle.ID.String(),
			Year:  vehicle.Year,
			Make:  vehicle.Make,
			Model: vehicle.Model,
			Color: vehicle.Color,
		}
	}
	return out, nil
}

func decimalString(valid bool, value string) *string {
	if !valid {
		return nil
	}
	return &value
}
