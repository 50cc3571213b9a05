package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
)

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))

	if s.webhookLimiter.Enabled() {
		result, err := s.webhookLimiter.AllowProvider(c.Request.Context(), provider)
		if err != nil {
			// A broken limiter must not drop processor deliveries.
			result = nil
		}
		if result != nil && !result.Allowed {
			s.obsMetrics.RecordWebhookEvent(provider, "unknown", "rate_limited")
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.webhookSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, ledgerdomain.ErrEventIgnored) ||
			errors.Is(err, ledgerdomain.ErrEventAlreadyProcessed) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
