package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetCommunityGoal(c *gin.Context) {
	phase := strings.TrimSpace(c.Param("phase"))

	status, err := s.goalSvc.Status(c.Request.Context(), phase)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
