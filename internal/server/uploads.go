package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	storagedomain "github.com/smallbiznis/detailflow/internal/storage/domain"
	"github.com/smallbiznis/detailflow/pkg/validation"
)

type presignUploadRequest struct {
	OrgSlug     string `json:"orgSlug" validate:"required,notblank"`
	FileName    string `json:"fileName" validate:"required,notblank"`
	ContentType string `json:"contentType" validate:"required,notblank"`
}

// PresignUpload hands a browser a short-lived PUT URL under the organization's intake prefix.
func (s *Server) PresignUpload(c *gin.Context) {
	var req presignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := validation.Struct(req); err != nil {
		AbortWithError(c, err)
		return
	}
	if !storagedomain.IsAllowedContentType(req.ContentType) {
		AbortWithError(c, storagedomain.ErrUnsupportedContentType)
		return
	}

	ctx := c.Request.Context()
	org, err := s.organizationSvc.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(req.OrgSlug)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	cred, err := s.gateway.IssueUploadCredential(ctx, org.Slug, req.FileName, req.ContentType)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordPresignIssued(ctx, org.ID.String(), s.cfg.Storage.Provider)
	}

	c.JSON(http.StatusOK, cred)
}
