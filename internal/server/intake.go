package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	intakedomain "github.com/smallbiznis/detailflow/internal/intake/domain"
)

// SubmitIntake records a customer, their vehicle and a new job from the public form.
func (s *Server) SubmitIntake(c *gin.Context) {
	var req intakedomain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.intakeSvc.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
