package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	feeratedomain "github.com/furima-share/fleapay/internal/feerate/domain"
)

type sellerTierResponse struct {
	SellerID              string  `json:"seller_id"`
	YearMonth             string  `json:"year_month"`
	TierNumber            int     `json:"tier_number"`
	TierName              string  `json:"tier_name"`
	StartTier             int     `json:"start_tier"`
	BaseTier              int     `json:"base_tier"`
	TransactionCount      int64   `json:"transaction_count"`
	CurrentFeeRatePercent float64 `json:"current_fee_rate_percent"`
	CommunityGoalAchieved bool    `json:"community_goal_achieved"`
}

// GetSellerTier reports a seller's current-month tier status together with
// the effective fee rate, as surfaced on the seller dashboard.
func (s *Server) GetSellerTier(c *gin.Context) {
	sellerID := strings.TrimSpace(c.Param("seller_id"))
	planType := strings.TrimSpace(c.Query("plan_type"))
	if planType == "" {
		planType = defaultPlanType
	}

	now := s.clock.Now().UTC()
	resolution, err := s.tierSvc.ResolveCurrentTier(c.Request.Context(), sellerID, now.Year(), now.Month())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rate, err := s.feeRateSvc.ResolveForTier(c.Request.Context(), feeratedomain.TierRateRequest{
		SellerID: sellerID,
		PlanType: planType,
		Tier:     resolution.CurrentTier,
		AsOf:     now,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sellerTierResponse{
		SellerID:              resolution.SellerID,
		YearMonth:             resolution.YearMonth,
		TierNumber:            resolution.CurrentTier,
		TierName:              resolution.TierName,
		StartTier:             resolution.StartTier,
		BaseTier:              resolution.BaseTier,
		TransactionCount:      resolution.TransactionCount,
		CurrentFeeRatePercent: rate.Rate * 100,
		CommunityGoalAchieved: rate.CommunityGoalAchieved,
	})
}
