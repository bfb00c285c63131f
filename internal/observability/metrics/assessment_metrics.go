package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	assessmentdomain "github.com/smallbiznis/detailflow/internal/assessment/domain"
	"github.com/smallbiznis/detailflow/internal/authorization"
)

const (
	AssessmentOutcomeSuccess         = "success"
	AssessmentReasonDeadlineExceeded = "deadline_exceeded"
	AssessmentReasonNoPhotos         = "no_photos"
	AssessmentReasonModelFailed      = "model_failed"
	AssessmentReasonInvalidOutput    = "invalid_output"
	AssessmentReasonInProgress       = "in_progress"
	AssessmentReasonJobNotFound      = "job_not_found"
	AssessmentReasonForbidden        = "forbidden"
	AssessmentReasonDBLockTimeout    = "db_lock_timeout"
	AssessmentReasonSerialization    = "serialization_failure"
	AssessmentReasonUnknown          = "unknown"
)

const (
	AssessmentStageFetch   = "fetch"
	AssessmentStageModel   = "model"
	AssessmentStagePersist = "persist"
)

const (
	PhotoResultFetched     = "fetched"
	PhotoResultFetchFailed = "fetch_failed"
	PhotoResultUnsupported = "unsupported_media"
	PhotoResultTruncated   = "truncated"
)

// AssessmentMetrics tracks the photo→model→persist pipeline.
type AssessmentMetrics struct {
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	photos        *prometheus.CounterVec
	confidence    prometheus.Observer
}

var (
	assessmentMetricsOnce sync.Once
	assessmentMetrics     *AssessmentMetrics
)

// Assessment returns the singleton assessment metrics registry.
func Assessment() *AssessmentMetrics {
	return AssessmentWithConfig(Config{})
}

// AssessmentWithConfig returns the singleton registry using config labels.
func AssessmentWithConfig(cfg Config) *AssessmentMetrics {
	assessmentMetricsOnce.Do(func() {
		assessmentMetrics = newAssessmentMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return assessmentMetrics
}

// ResetAssessmentMetricsForTest resets the assessment metrics singleton for tests.
func ResetAssessmentMetricsForTest() {
	assessmentMetricsOnce = sync.Once{}
	assessmentMetrics = nil
}

func newAssessmentMetrics(registerer prometheus.Registerer, cfg Config) *AssessmentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "detailflow"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "detailflow_assessment_runs_total",
		Help:        "Assessment runs by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "detailflow_assessment_stage_duration_seconds",
		Help:        "Assessment pipeline stage latency.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		ConstLabels: constLabels,
	}, []string{"stage"})
	photos := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "detailflow_assessment_photos_total",
		Help:        "Photos considered for assessment by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	confidence := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "detailflow_assessment_confidence",
		Help:        "Model-reported confidence of persisted assessments.",
		Buckets:     []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(runs, stageDuration, photos, confidence)

	return &AssessmentMetrics{
		runs:          runs,
		stageDuration: stageDuration,
		photos:        photos,
		confidence:    confidence,
	}
}

// IncRun counts a finished run. Pass nil for success.
func (m *AssessmentMetrics) IncRun(err error) {
	if m == nil || m.runs == nil {
		return
	}
	outcome := AssessmentOutcomeSuccess
	if err != nil {
		outcome = ClassifyAssessmentFailure(err)
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *AssessmentMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil || m.stageDuration == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *AssessmentMetrics) AddPhotos(result string, count int) {
	if m == nil || count <= 0 || m.photos == nil {
		return
	}
	m.photos.WithLabelValues(result).Add(float64(count))
}

func (m *AssessmentMetrics) ObserveConfidence(confidence int) {
	if m == nil || m.confidence == nil {
		return
	}
	m.confidence.Observe(float64(confidence))
}

// ClassifyAssessmentFailure maps pipeline errors to low-cardinality reasons.
func ClassifyAssessmentFailure(err error) string {
	switch {
	case err == nil:
		return AssessmentReasonUnknown
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return AssessmentReasonDeadlineExceeded
	case errors.Is(err, assessmentdomain.ErrNoPhotosRetrieved):
		return AssessmentReasonNoPhotos
	case errors.Is(err, assessmentdomain.ErrModelFailed):
		return AssessmentReasonModelFailed
	case errors.Is(err, assessmentdomain.ErrInvalidModelOutput):
		return AssessmentReasonInvalidOutput
	case errors.Is(err, assessmentdomain.ErrAssessmentInProgress):
		return AssessmentReasonInProgress
	case errors.Is(err, assessmentdomain.ErrJobNotFound):
		return AssessmentReasonJobNotFound
	case errors.Is(err, authorization.ErrForbidden):
		return AssessmentReasonForbidden
	case hasPGCode(err, "55P03"):
		return AssessmentReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return AssessmentReasonSerialization
	}
	return AssessmentReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
