package domain

import (
	"context"
	"errors"
)

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
}

const (
	MinVehicleYear = 1900
	MaxPhotoKeys   = 10
)

// SubmitRequest is the public intake form. Photo keys come from the presign endpoint.
type SubmitRequest struct {
	OrgSlug      string   `json:"orgSlug" validate:"required,notblank"`
	FirstName    string   `json:"firstName" validate:"required,notblank"`
	LastName     string   `json:"lastName" validate:"required,notblank"`
	Email        string   `json:"email" validate:"required,email"`
	Phone        string   `json:"phone" validate:"required,notblank"`
	VehicleYear  int      `json:"vehicleYear" validate:"required"`
	VehicleMake  string   `json:"vehicleMake" validate:"required,notblank"`
	VehicleModel string   `json:"vehicleModel" validate:"required,notblank"`
	VehicleColor string   `json:"vehicleColor" validate:"required,notblank"`
	Notes        string   `json:"notes"`
	PhotoKeys    []string `json:"photoKeys" validate:"max=10,dive,notblank"`
}

type SubmitResult struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
}

var (
	ErrOrganizationNotFound = errors.New("organization_not_found")
)
