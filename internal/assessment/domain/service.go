package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Service interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*Assessment, error)
}

// AnalyzeRequest asks for a fresh assessment of a job from already-uploaded photos.
// Vehicle fields are optional; when all are blank the job's stored vehicle is used.
type AnalyzeRequest struct {
	JobID        string      `json:"jobId" validate:"required,uuid"`
	PhotoKeys    []string    `json:"photoKeys" validate:"required,min=1,dive,notblank"`
	VehicleYear  VehicleYear `json:"vehicleYear"`
	VehicleMake  string      `json:"vehicleMake"`
	VehicleModel string      `json:"vehicleModel"`
	VehicleColor string      `json:"vehicleColor"`
}

// VehicleYear accepts a JSON number, a numeric string, "" or null. Zero means unset.
type VehicleYear int

func (y *VehicleYear) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*y = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
		if len(data) == 0 {
			*y = 0
			return nil
		}
	}
	n, err := strconv.Atoi(string(data))
	if err != nil || n < 0 {
		return fmt.Errorf("vehicleYear: %q is not a year", data)
	}
	*y = VehicleYear(n)
	return nil
}

// String renders the year, or "" when unset.
func (y VehicleYear) String() string {
	if y <= 0 {
		return ""
	}
	return strconv.Itoa(int(y))
}

// Locker keeps two assessments of the same job from running at once.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrJobNotFound          = errors.New("job_not_found")
	ErrAssessmentInProgress = errors.New("assessment_in_progress")
	ErrNoPhotosRetrieved    = errors.New("no_photos_retrieved")
	ErrModelFailed          = errors.New("model_failed")
	ErrInvalidModelOutput   = errors.New("invalid_model_output")
	ErrUnsupportedVersion   = errors.New("unsupported_assessment_version")
)
