package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Stage string

const (
	StageCreated    Stage = "created"
	StageSent       Stage = "sent"
	StageApproved   Stage = "approved"
	StageInProgress Stage = "inProgress"
	StageQC         Stage = "qc"
	StageComplete   Stage = "complete"
)

// pipeline is the only order jobs may move through.
var pipeline = []Stage{StageCreated, StageSent, StageApproved, StageInProgress, StageQC, StageComplete}

func ParseStage(value string) (Stage, bool) {
	for _, s := range pipeline {
		if string(s) == value {
			return s, true
		}
	}
	return "", false
}

// Next returns the stage after s, or false when s is terminal or unknown.
func (s Stage) Next() (Stage, bool) {
	for i, candidate := range pipeline {
		if candidate == s && i+1 < len(pipeline) {
			return pipeline[i+1], true
		}
	}
	return "", false
}

const (
	PhaseBefore  = "before"
	AreaUntagged = "untagged"
)

type Photo struct {
	Key   string `json:"key"`
	Phase string `json:"phase"`
	Area  string `json:"area"`
}

type StageHistoryEntry struct {
	From  Stage     `json:"from"`
	To    Stage     `json:"to"`
	At    time.Time `json:"at"`
	Actor string    `json:"actor"`
}

type Job struct {
	ID                  uuid.UUID                              `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID               uuid.UUID                              `gorm:"type:uuid;not null" json:"org_id"`
	VehicleID           uuid.UUID                              `gorm:"type:uuid;not null" json:"vehicle_id"`
	CustomerID          uuid.UUID                              `gorm:"type:uuid;not null" json:"customer_id"`
	Stage               Stage                                  `gorm:"type:text;not null" json:"stage"`
	Photos              datatypes.JSONSlice[Photo]             `gorm:"type:jsonb;not null" json:"photos"`
	AIAssessment        *datatypes.JSON                        `gorm:"column:ai_assessment;type:jsonb" json:"-"`
	AIAssessmentVersion *int                                   `gorm:"column:ai_assessment_version" json:"-"`
	DetailerAdjustments *datatypes.JSON                        `gorm:"type:jsonb" json:"detailer_adjustments,omitempty"`
	EstimateAmount      decimal.NullDecimal                    `gorm:"type:numeric(12,2)" json:"estimate_amount"`
	FinalAmount         decimal.NullDecimal                    `gorm:"type:numeric(12,2)" json:"final_amount"`
	Notes               *string                                `json:"notes,omitempty"`
	StageHistory        datatypes.JSONSlice[StageHistoryEntry] `gorm:"type:jsonb;not null" json:"stage_history"`
	CreatedAt           time.Time                              `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time                              `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

// PhotosFromKeys tags freshly uploaded intake keys as untagged "before" photos.
func PhotosFromKeys(keys []string) datatypes.JSONSlice[Photo] {
	photos := make(datatypes.JSONSlice[Photo], 0, len(keys))
	for _, key := range keys {
		photos = append(photos, Photo{Key: key, Phase: PhaseBefore, Area: AreaUntagged})
	}
	return photos
}
