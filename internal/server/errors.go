package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/smallbiznis/detailflow/internal/apikey/domain"
	assessmentdomain "github.com/smallbiznis/detailflow/internal/assessment/domain"
	"github.com/smallbiznis/detailflow/internal/authorization"
	intakedomain "github.com/smallbiznis/detailflow/internal/intake/domain"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	organizationdomain "github.com/smallbiznis/detailflow/internal/organization/domain"
	"github.com/smallbiznis/detailflow/internal/providers/pdf"
	storagedomain "github.com/smallbiznis/detailflow/internal/storage/domain"
	supplydomain "github.com/smallbiznis/detailflow/internal/supply/domain"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
	"github.com/smallbiznis/detailflow/pkg/validation"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string                  `json:"type"`
	Message string                  `json:"message"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	var verrs validation.Errors
	verrs.Add(field, code, message)
	return verrs
}

// fieldErrors maps sentinel validation errors to the request field they describe.
var fieldErrors = []struct {
	err   error
	field string
}{
	{ErrInvalidRequest, "request"},
	{pagination.ErrInvalidPageToken, "page_token"},
	{storagedomain.ErrUnsupportedContentType, "contentType"},
	{storagedomain.ErrInvalidKey, "fileName"},
	{storagedomain.ErrInvalidTenant, "orgSlug"},
	{jobdomain.ErrInvalidJobID, "id"},
	{jobdomain.ErrInvalidStage, "stage"},
	{jobdomain.ErrInvalidStageTransition, "stage"},
	{supplydomain.ErrInvalidJobID, "id"},
	{organizationdomain.ErrInvalidName, "name"},
	{organizationdomain.ErrInvalidEmail, "businessEmail"},
	{apikeydomain.ErrInvalidName, "name"},
	{apikeydomain.ErrInvalidRole, "role"},
	{apikeydomain.ErrInvalidKeyID, "key_id"},
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, internalPayload()
	}

	if verrs, ok := validation.As(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  verrs,
		}
	}

	for _, fe := range fieldErrors {
		if errors.Is(err, fe.err) {
			return http.StatusBadRequest, errorPayload{
				Type:    "validation_error",
				Message: "validation error",
				Errors: []validation.FieldError{{
					Field:   fe.field,
					Code:    fe.err.Error(),
					Message: validationErrorMessage(fe.err.Error()),
				}},
			}
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, apikeydomain.ErrUnauthorized),
		errors.Is(err, apikeydomain.ErrInvalidOrganization),
		errors.Is(err, assessmentdomain.ErrInvalidOrganization),
		errors.Is(err, jobdomain.ErrInvalidOrganization),
		errors.Is(err, supplydomain.ErrInvalidOrganization),
		errors.Is(err, organizationdomain.ErrInvalidOrganization):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, assessmentdomain.ErrAssessmentInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "an assessment for this job is already running",
		}
	case errors.Is(err, jobdomain.ErrStageConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "job stage changed, reload and try again",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, assessmentdomain.ErrNoPhotosRetrieved):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "failed to fetch any photos from storage",
		}
	case errors.Is(err, assessmentdomain.ErrModelFailed),
		errors.Is(err, assessmentdomain.ErrInvalidModelOutput):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "assessment failed, please try again",
		}
	case errors.Is(err, storagedomain.ErrPresignFailed):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "failed to generate upload url",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, internalPayload()
	}
}

func internalPayload() errorPayload {
	return errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, organizationdomain.ErrInvalidSlug),
		errors.Is(err, intakedomain.ErrOrganizationNotFound),
		errors.Is(err, assessmentdomain.ErrJobNotFound),
		errors.Is(err, jobdomain.ErrNotFound),
		errors.Is(err, supplydomain.ErrJobNotFound),
		errors.Is(err, supplydomain.ErrProductNotFound),
		errors.Is(err, apikeydomain.ErrNotFound),
		errors.Is(err, pdf.ErrNoAssessment),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, organizationdomain.ErrInvalidSlug),
		errors.Is(err, intakedomain.ErrOrganizationNotFound):
		return "organization not found"
	case errors.Is(err, assessmentdomain.ErrJobNotFound),
		errors.Is(err, jobdomain.ErrNotFound),
		errors.Is(err, supplydomain.ErrJobNotFound):
		return "job not found"
	case errors.Is(err, supplydomain.ErrProductNotFound):
		return "product not found"
	case errors.Is(err, pdf.ErrNoAssessment):
		return "job has no assessment"
	default:
		return "not found"
	}
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "unsupported_content_type":
		return "only JPEG, PNG, WebP and HEIC images are accepted"
	case "invalid_stage_transition":
		return "stage can only advance to the next step"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog returns the error type and code attached to request logs.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	if status == http.StatusBadRequest && len(payload.Errors) > 0 {
		return payload.Type, strings.TrimSpace(payload.Errors[0].Code)
	}
	return payload.Type, strings.TrimSpace(err.Error())
}
