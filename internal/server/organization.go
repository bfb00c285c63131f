package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	organizationdomain "github.com/smallbiznis/detailflow/internal/organization/domain"
)

// GetPublicOrganization exposes only the name and slug so the intake page can brand itself.
func (s *Server) GetPublicOrganization(c *gin.Context) {
	slug := strings.ToLower(strings.TrimSpace(c.Param("slug")))
	org, err := s.organizationSvc.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": organizationdomain.PublicOrganization{
		Name: org.Name,
		Slug: org.Slug,
	}})
}
