package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	feeratedomain "github.com/furima-share/fleapay/internal/feerate/domain"
)

const defaultPlanType = "standard"

type quoteCheckoutFeeRequest struct {
	SellerID          string `json:"seller_id" binding:"required"`
	PlanType          string `json:"plan_type"`
	TierSystemEnabled *bool  `json:"tier_system_enabled"`
	Amount            int64  `json:"amount" binding:"min=0"`
}

// QuoteCheckoutFee resolves the seller's effective rate and derives the fee
// to attach to the outgoing payment request.
func (s *Server) QuoteCheckoutFee(c *gin.Context) {
	var req quoteCheckoutFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	planType := strings.TrimSpace(req.PlanType)
	if planType == "" {
		planType = defaultPlanType
	}
	tierEnabled := true
	if req.TierSystemEnabled != nil {
		tierEnabled = *req.TierSystemEnabled
	}

	quote, err := s.feeRateSvc.Quote(c.Request.Context(), feeratedomain.QuoteRequest{
		SellerID:          req.SellerID,
		PlanType:          planType,
		TierSystemEnabled: tierEnabled,
		Amount:            req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}
