package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	assessmentdomain "github.com/smallbiznis/detailflow/internal/assessment/domain"
	vehicledomain "github.com/smallbiznis/detailflow/internal/vehicle/domain"
)

type Service interface {
	GetByID(ctx context.Context, id string) (*Detail, error)
	AdvanceStage(ctx context.Context, req AdvanceStageRequest) (*Detail, error)
	// Load returns the org-scoped job with its vehicle, for pipelines that act on it.
	Load(ctx context.Context, id uuid.UUID) (*Job, *vehicledomain.Vehicle, error)
	SaveAssessment(ctx context.Context, id uuid.UUID, payload []byte, version int) error
}

type AdvanceStageRequest struct {
	JobID string
	Stage string
	Actor string
}

type CustomerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type VehicleSummary struct {
	ID    string `json:"id"`
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Color string `json:"color"`
}

// Detail is the staff-facing view of a job.
type Detail struct {
	ID                string                       `json:"id"`
	Stage             Stage                        `json:"stage"`
	Photos            []Photo                      `json:"photos"`
	StageHistory      []StageHistoryEntry          `json:"stage_history"`
	Assessment        *assessmentdomain.Assessment `json:"ai_assessment"`
	AssessmentVersion *int                         `json:"ai_assessment_version"`
	EstimateAmount    *string                      `json:"estimate_amount"`
	FinalAmount       *string                      `json:"final_amount"`
	Notes             *string                      `json:"notes"`
	Customer          *CustomerSummary             `json:"customer,omitempty"`
	Vehicle           *VehicleSummary              `json:"vehicle,omitempty"`
	CreatedAt         time.Time                    `json:"created_at"`
	UpdatedAt         time.Time                    `json:"updated_at"`
}

var (
	ErrInvalidOrganization    = errors.New("invalid_organization")
	ErrInvalidJobID           = errors.New("invalid_job_id")
	ErrInvalidStage           = errors.New("invalid_stage")
	ErrInvalidStageTransition = errors.New("invalid_stage_transition")
	ErrNotFound               = errors.New("job_not_found")
	ErrStageConflict          = errors.New("stage_conflict")
)
