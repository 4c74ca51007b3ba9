package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListInvoices(c *gin.Context) {
	items, err := s.invoiceSvc.FetchAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.invoiceSvc.Fetch(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) ListInvoicesByStatus(c *gin.Context) {
	status, err := parseStatusParam(c.Param("status"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.invoiceSvc.FetchByStatus(c.Request.Context(), status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
