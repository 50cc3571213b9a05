package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/furima-share/fleapay/internal/clock"
	"github.com/furima-share/fleapay/internal/communitygoal"
	cgdomain "github.com/furima-share/fleapay/internal/communitygoal/domain"
	"github.com/furima-share/fleapay/internal/config"
	"github.com/furima-share/fleapay/internal/feecheck"
	feecheckdomain "github.com/furima-share/fleapay/internal/feecheck/domain"
	"github.com/furima-share/fleapay/internal/feerate"
	feeratedomain "github.com/furima-share/fleapay/internal/feerate/domain"
	"github.com/furima-share/fleapay/internal/ledger"
	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
	"github.com/furima-share/fleapay/internal/observability"
	obsmiddleware "github.com/furima-share/fleapay/internal/observability/logger"
	obsmetrics "github.com/furima-share/fleapay/internal/observability/metrics"
	obstracing "github.com/furima-share/fleapay/internal/observability/tracing"
	"github.com/furima-share/fleapay/internal/ratelimit"
	"github.com/furima-share/fleapay/internal/tier"
	tierdomain "github.com/furima-share/fleapay/internal/tier/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	tier.Module,
	communitygoal.Module,
	feerate.Module,
	ledger.Module,
	feecheck.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	tierSvc        tierdomain.Service
	goalSvc        cgdomain.Service
	feeRateSvc     feeratedomain.Service
	ledgerSvc      ledgerdomain.Service
	webhookSvc     ledgerdomain.WebhookService
	feeCheckSvc    feecheckdomain.Service
	webhookLimiter *ratelimit.WebhookLimiter
	obsMetrics     *obsmetrics.Metrics
	pricing        *config.PricingConfigHolder
	clock          clock.Clock
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	TierSvc        tierdomain.Service
	GoalSvc        cgdomain.Service
	FeeRateSvc     feeratedomain.Service
	LedgerSvc      ledgerdomain.Service
	WebhookSvc     ledgerdomain.WebhookService
	FeeCheckSvc    feecheckdomain.Service
	WebhookLimiter *ratelimit.WebhookLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics       `optional:"true"`
	Pricing        *config.PricingConfigHolder
	Clock          clock.Clock
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		tierSvc:        p.TierSvc,
		goalSvc:        p.GoalSvc,
		feeRateSvc:     p.FeeRateSvc,
		ledgerSvc:      p.LedgerSvc,
		webhookSvc:     p.WebhookSvc,
		feeCheckSvc:    p.FeeCheckSvc,
		webhookLimiter: p.WebhookLimiter,
		obsMetrics:     p.ObsMetrics,
		pricing:        p.Pricing,
		clock:          p.Clock,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/checkout/fees", s.QuoteCheckoutFee)
	v1.GET("/sellers/:seller_id/tier", s.GetSellerTier)
	v1.GET("/community-goals/:phase", s.GetCommunityGoal)
	v1.GET("/payments/:intent_id", s.GetPaymentByIntent)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/v1/admin")

	admin.GET("/tier-evaluations", s.EvaluateTierState)
	admin.GET("/fee-checks", s.ListFeeChecks)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/v1/webhooks/:provider", s.HandlePaymentWebhook)
}
