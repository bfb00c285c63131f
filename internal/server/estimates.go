package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	assessmentdomain "github.com/smallbiznis/detailflow/internal/assessment/domain"
)

func (s *Server) AnalyzeEstimate(c *gin.Context) {
	var req assessmentdomain.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	c.Set("job_id", req.JobID)

	resp, err := s.assessmentSvc.Analyze(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
