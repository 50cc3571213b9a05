package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetPaymentByIntent(c *gin.Context) {
	intentID := strings.TrimSpace(c.Param("intent_id"))

	record, err := s.ledgerSvc.GetByIntent(c.Request.Context(), intentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}
