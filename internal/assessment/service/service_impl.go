package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/detailflow/internal/assessment/domain"
	"github.com/smallbiznis/detailflow/internal/config"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/internal/observability/logger"
	"github.com/smallbiznis/detailflow/internal/observability/metrics"
	"github.com/smallbiznis/detailflow/internal/observability/tracing"
	"github.com/smallbiznis/detailflow/internal/orgcontext"
	storagedomain "github.com/smallbiznis/detailflow/internal/storage/domain"
	vehicledomain "github.com/smallbiznis/detailflow/internal/vehicle/domain"
	visiondomain "github.com/smallbiznis/detailflow/internal/vision/domain"
	"github.com/smallbiznis/detailflow/pkg/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	lockKeyPrefix = "assessment:lock:"
	lockSlack     = 10 * time.Second
	maxLoggedText = 4000
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Config   *config.AssessmentConfigHolder
	Jobs     jobdomain.Service
	Storage  storagedomain.Gateway
	Model    visiondomain.Model
	Locker   domain.Locker              `optional:"true"`
	Metrics  *metrics.Metrics           `optional:"true"`
	Pipeline *metrics.AssessmentMetrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	cfg      *config.AssessmentConfigHolder
	jobs     jobdomain.Service
	storage  storagedomain.Gateway
	model    visiondomain.Model
	locker   domain.Locker
	metrics  *metrics.Metrics
	pipeline *metrics.AssessmentMetrics
	tracer   trace.Tracer
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("assessment.service"),
		cfg:      p.Config,
		jobs:     p.Jobs,
		storage:  p.Storage,
		model:    p.Model,
		locker:   p.Locker,
		metrics:  p.Metrics,
		pipeline: p.Pipeline,
		tracer:   otel.Tracer("detailflow/assessment"),
	}
}

func (s *Service) Analyze(ctx context.Context, req domain.AnalyzeRequest) (result *domain.Assessment, err error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		return nil, domain.ErrJobNotFound
	}

	log := logger.WithContext(ctx, s.log).With(zap.String("job_id", jobID.String()))
	defer func() {
		outcome := metrics.AssessmentOutcomeSuccess
		if err != nil {
			outcome = metrics.ClassifyAssessmentFailure(err)
		}
		s.pipeline.IncRun(err)
		s.metrics.RecordAssessmentRequest(ctx, orgID.String(), outcome)
	}()

	_, vehicle, err := s.jobs.Load(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobdomain.ErrNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}

	cfg := s.cfg.Get()
	// a client disconnect must not abort fetches or the model call
	runCtx := context.WithoutCancel(ctx)

	if s.locker != nil {
		key := lockKeyPrefix + jobID.String()
		ttl := cfg.FetchTimeout + cfg.ModelTimeout + lockSlack
		token, acquired, lockErr := s.locker.TryLock(runCtx, key, ttl)
		switch {
		case lockErr != nil:
			log.Warn("assessment lock unavailable, running without it", zap.Error(lockErr))
		case !acquired:
			return nil, domain.ErrAssessmentInProgress
		default:
			defer func() {
				if err := s.locker.Unlock(runCtx, key, token); err != nil {
					log.Warn("assessment unlock failed", zap.Error(err))
				}
			}()
		}
	}

	return s.run(runCtx, log, cfg, jobID, req, vehicle)
}

func (s *Service) run(ctx context.Context, log *zap.Logger, cfg config.AssessmentConfig, jobID uuid.UUID, req domain.AnalyzeRequest, vehicle *vehicledomain.Vehicle) (*domain.Assessment, error) {
	keys := req.PhotoKeys
	if len(keys) > cfg.MaxPhotos {
		s.pipeline.AddPhotos(metrics.PhotoResultTruncated, len(keys)-cfg.MaxPhotos)
		keys = keys[:cfg.MaxPhotos]
	}

	fetchCtx, span := s.tracer.Start(ctx, "assessment.fetch_photos")
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("job_id", jobID.String()),
		attribute.Int("photo_count", len(keys)),
	)...)
	started := time.Now()
	fetched := s.fetchPhotos(fetchCtx, log, keys, cfg.FetchTimeout, cfg.ImageMaxEdge)
	s.pipeline.ObserveStage(metrics.AssessmentStageFetch, time.Since(started))
	s.pipeline.AddPhotos(metrics.PhotoResultFetched, len(fetched.images))
	s.pipeline.AddPhotos(metrics.PhotoResultFetchFailed, fetched.failed)
	s.pipeline.AddPhotos(metrics.PhotoResultUnsupported, fetched.unsupported)
	span.SetAttributes(attribute.Int("photos_usable", len(fetched.images)))
	span.End()

	if len(fetched.images) == 0 {
		log.Error("no photos retrieved",
			zap.Int("requested", len(keys)),
			zap.Int("failed", fetched.failed),
			zap.Int("unsupported", fetched.unsupported),
		)
		return nil, domain.ErrNoPhotosRetrieved
	}

	descriptor := vehicledomain.Descriptor{
		Year:  req.VehicleYear.String(),
		Make:  req.VehicleMake,
		Model: req.VehicleModel,
		Color: req.VehicleColor,
	}
	if descriptor.IsBlank() && vehicle != nil {
		descriptor = vehicle.Descriptor()
	}

	text, err := s.complete(ctx, log, cfg, visiondomain.Request{
		Model:     cfg.Model,
		System:    systemPrompt,
		Prompt:    vehiclePrompt(descriptor),
		Images:    fetched.images,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	assessment, err := domain.Parse(text)
	if err != nil {
		log.Error("model output rejected", zap.Error(err), zap.String("raw", truncate(text, maxLoggedText)))
		return nil, err
	}
	if assessment.Confidence < cfg.LowConfidenceThreshold && len(assessment.Flags) == 0 {
		assessment.Flags = append(assessment.Flags, lowConfidenceFlag)
	}

	payload, err := domain.Encode(assessment)
	if err != nil {
		return nil, err
	}

	persistCtx, span := s.tracer.Start(ctx, "assessment.persist")
	started = time.Now()
	err = s.jobs.SaveAssessment(persistCtx, jobID, payload, domain.CurrentVersion)
	s.pipeline.ObserveStage(metrics.AssessmentStagePersist, time.Since(started))
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "persist failed")
		span.End()
		if errors.Is(err, jobdomain.ErrNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("persist assessment: %w", err)
	}
	span.End()

	s.pipeline.ObserveConfidence(assessment.Confidence)
	log.Info("assessment stored",
		zap.Int("photos", len(fetched.images)),
		zap.Int("confidence", assessment.Confidence),
		zap.Int("flags", len(assessment.Flags)),
		zap.String("model", cfg.Model),
	)
	return assessment, nil
}

func (s *Service) complete(ctx context.Context, log *zap.Logger, cfg config.AssessmentConfig, req visiondomain.Request) (string, error) {
	modelCtx, cancel := context.WithTimeout(ctx, cfg.ModelTimeout)
	defer cancel()

	modelCtx, span := s.tracer.Start(modelCtx, "assessment.model")
	defer span.End()
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("provider", s.model.Name()),
		attribute.String("model", req.Model),
		attribute.Int("images", len(req.Images)),
	)...)

	started := time.Now()
	text, err := s.model.Complete(modelCtx, req)
	s.pipeline.ObserveStage(metrics.AssessmentStageModel, time.Since(started))
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "model call failed")
		log.Error("model call failed", zap.String("provider", s.model.Name()), zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrModelFailed, err)
	}
	return text, nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
