package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	feecheckdomain "github.com/furima-share/fleapay/internal/feecheck/domain"
	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
	tierdomain "github.com/furima-share/fleapay/internal/tier/domain"
	"github.com/furima-share/fleapay/pkg/db/pagination"
)

// EvaluateTierState is the operator probe for tier-boundary behavior. It
// never writes tier state, so hypothetical counts are safe to try.
func (s *Server) EvaluateTierState(c *gin.Context) {
	req := tierdomain.EvaluateRequest{
		SellerID: strings.TrimSpace(c.Query("seller_id")),
	}

	if raw := strings.TrimSpace(c.Query("as_of")); raw != "" {
		asOf, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("as_of", "invalid_as_of", "must be RFC 3339"))
			return
		}
		req.AsOf = asOf
	}
	count, ok, err := optionalInt64Query(c, "transaction_count")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if ok {
		req.TransactionCountOverride = &count
	}
	prevCount, ok, err := optionalInt64Query(c, "prev_month_count")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if ok {
		req.PrevMonthCountOverride = &prevCount
	}

	resolution, err := s.tierSvc.EvaluateAt(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolution)
}

// ListFeeChecks runs the fee consistency report over the filtered ledger
// sample.
func (s *Server) ListFeeChecks(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := feecheckdomain.CheckRequest{
		Search:            strings.TrimSpace(c.Query("q")),
		PlanType:          strings.TrimSpace(c.Query("plan_type")),
		TierSystemEnabled: true,
		Pagination:        page,
	}
	if req.PlanType == "" {
		req.PlanType = defaultPlanType
	}
	if raw := strings.TrimSpace(c.Query("tier_system_enabled")); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			AbortWithError(c, newValidationError("tier_system_enabled", "invalid_tier_system_enabled", "must be a boolean"))
			return
		}
		req.TierSystemEnabled = enabled
	}

	if raw := strings.TrimSpace(c.Query("statuses")); raw != "" {
		for _, status := range strings.Split(raw, ",") {
			status = strings.TrimSpace(status)
			if status == "" {
				continue
			}
			req.Statuses = append(req.Statuses, ledgerdomain.PaymentStatus(status))
		}
	}
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("from", "invalid_from", "must be RFC 3339"))
			return
		}
		req.From = &from
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("to", "invalid_to", "must be RFC 3339"))
			return
		}
		req.To = &to
	}

	report, err := s.feeCheckSvc.Check(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func optionalInt64Query(c *gin.Context, name string) (int64, bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, newValidationError(name, "invalid_"+name, "must be an integer")
	}
	return value, true, nil
}
