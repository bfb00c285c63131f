package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	supplydomain "github.com/smallbiznis/detailflow/internal/supply/domain"
)

func (s *Server) ListProducts(c *gin.Context) {
	var req supplydomain.ListProductsRequest
	if err := c.ShouldBindQuery(&req.Pagination); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.supplySvc.ListProducts(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req supplydomain.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.supplySvc.CreateProduct(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
