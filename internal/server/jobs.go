package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/internal/orgcontext"
	"github.com/smallbiznis/detailflow/internal/providers/pdf"
	supplydomain "github.com/smallbiznis/detailflow/internal/supply/domain"
)

type advanceStageRequest struct {
	Stage string `json:"stage"`
}

func (s *Server) GetJobByID(c *gin.Context) {
	resp, err := s.jobSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdvanceJobStage(c *gin.Context) {
	var req advanceStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	keyID, _ := apiKeyIDFromContext(c)
	resp, err := s.jobSvc.AdvanceStage(c.Request.Context(), jobdomain.AdvanceStageRequest{
		JobID: c.Param("id"),
		Stage: strings.TrimSpace(req.Stage),
		Actor: actorSubject(keyID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetJobEstimatePDF renders the job's current assessment as a printable estimate.
func (s *Server) GetJobEstimatePDF(c *gin.Context) {
	ctx := c.Request.Context()

	detail, err := s.jobSvc.GetByID(ctx, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	org, err := s.organizationSvc.GetByID(ctx, orgID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := pdf.NewEstimateData(detail, org.Name, s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.pdfProvider.GenerateEstimate(ctx, data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`inline; filename="estimate-%s.pdf"`, detail.ID),
	})
}

func (s *Server) LogJobUsage(c *gin.Context) {
	var req supplydomain.LogUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.JobID = c.Param("id")

	resp, err := s.supplySvc.LogUsage(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetJobCosts(c *gin.Context) {
	resp, err := s.supplySvc.JobCosts(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
