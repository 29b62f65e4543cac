package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/analytics"
	analyticsdomain "github.com/tastelanc/backoffice/internal/analytics/domain"
	"github.com/tastelanc/backoffice/internal/auth"
	authdomain "github.com/tastelanc/backoffice/internal/auth/domain"
	"github.com/tastelanc/backoffice/internal/authorization"
	"github.com/tastelanc/backoffice/internal/billing"
	billingdomain "github.com/tastelanc/backoffice/internal/billing/domain"
	"github.com/tastelanc/backoffice/internal/clock"
	"github.com/tastelanc/backoffice/internal/commission"
	commissiondomain "github.com/tastelanc/backoffice/internal/commission/domain"
	"github.com/tastelanc/backoffice/internal/config"
	"github.com/tastelanc/backoffice/internal/events"
	"github.com/tastelanc/backoffice/internal/lead"
	leaddomain "github.com/tastelanc/backoffice/internal/lead/domain"
	"github.com/tastelanc/backoffice/internal/observability"
	obsmiddleware "github.com/tastelanc/backoffice/internal/observability/logger"
	obsmetrics "github.com/tastelanc/backoffice/internal/observability/metrics"
	obstracing "github.com/tastelanc/backoffice/internal/observability/tracing"
	"github.com/tastelanc/backoffice/internal/payroll"
	payrolldomain "github.com/tastelanc/backoffice/internal/payroll/domain"
	"github.com/tastelanc/backoffice/internal/providers"
	"github.com/tastelanc/backoffice/internal/ratelimit"
	"github.com/tastelanc/backoffice/internal/restaurant"
	restaurantdomain "github.com/tastelanc/backoffice/internal/restaurant/domain"
	"github.com/tastelanc/backoffice/internal/tier"
	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	events.Module,
	ratelimit.Module,
	providers.Module,
	auth.Module,
	restaurant.Module,
	tier.Module,
	commission.Module,
	lead.Module,
	payroll.Module,
	analytics.Module,
	billing.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
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
	engine        *gin.Engine
	cfg           config.Config
	clock         clock.Clock
	authsvc       authdomain.Service
	authzSvc      authorization.Service
	restaurantSvc restaurantdomain.Service
	tierSvc       tierdomain.Service
	commissionSvc commissiondomain.Service
	leadSvc       leaddomain.Service
	payrollSvc    payrolldomain.Service
	analyticsSvc  analyticsdomain.Service
	billingSvc    billingdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Clock         clock.Clock
	Authsvc       authdomain.Service
	AuthzSvc      authorization.Service
	RestaurantSvc restaurantdomain.Service
	TierSvc       tierdomain.Service
	CommissionSvc commissiondomain.Service
	LeadSvc       leaddomain.Service
	PayrollSvc    payrolldomain.Service
	AnalyticsSvc  analyticsdomain.Service
	BillingSvc    billingdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		clock:         p.Clock,
		authsvc:       p.Authsvc,
		authzSvc:      p.AuthzSvc,
		restaurantSvc: p.RestaurantSvc,
		tierSvc:       p.TierSvc,
		commissionSvc: p.CommissionSvc,
		leadSvc:       p.LeadSvc,
		payrollSvc:    p.PayrollSvc,
		analyticsSvc:  p.AnalyticsSvc,
		billingSvc:    p.BillingSvc,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerPublicRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())

	api.GET("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserView), s.ListUsers)
	api.POST("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserCreate), s.CreateUser)
	api.PUT("/me/push-token", s.RegisterPushToken)

	restaurants := api.Group("/restaurants")
	restaurants.POST("", s.authorize(authorization.ObjectRestaurant, authorization.ActionRestaurantCreate), s.CreateRestaurant)
	restaurants.GET("", s.authorize(authorization.ObjectRestaurant, authorization.ActionRestaurantView), s.ListRestaurants)
	restaurants.GET("/:restaurant_id", s.authorize(authorization.ObjectRestaurant, authorization.ActionRestaurantView), s.GetRestaurant)
	restaurants.GET("/:restaurant_id/access", s.authorize(authorization.ObjectRestaurant, authorization.ActionRestaurantView), s.GetRestaurantAccess)
	restaurants.PUT("/:restaurant_id/tier", s.authorize(authorization.ObjectRestaurant, authorization.ActionRestaurantChangeTier), s.ChangeRestaurantTier)
	restaurants.GET("/:restaurant_id/tier-changes", s.authorize(authorization.ObjectRestaurant, authorization.ActionRestaurantView), s.ListTierChanges)
	restaurants.GET("/:restaurant_id/analytics",
		s.authorize(authorization.ObjectAnalytics, authorization.ActionAnalyticsView),
		s.RequireFeature(tierdomain.FeatureAnalytics),
		s.AnalyticsSummary,
	)
	restaurants.POST("/:restaurant_id/checkout", s.authorize(authorization.ObjectBilling, authorization.ActionBillingCheckout), s.CreateCheckout)

	commissions := api.Group("/commissions")
	commissions.POST("/quote", s.authorize(authorization.ObjectCommission, authorization.ActionCommissionQuote), s.QuoteCommission)
	commissions.POST("", s.authorize(authorization.ObjectCommission, authorization.ActionCommissionRecord), s.RecordSale)
	commissions.GET("", s.authorize(authorization.ObjectCommission, authorization.ActionCommissionView), s.ListCommissionEntries)

	leads := api.Group("/leads")
	leads.POST("", s.authorize(authorization.ObjectLead, authorization.ActionLeadCreate), s.CreateLead)
	leads.GET("", s.authorize(authorization.ObjectLead, authorization.ActionLeadView), s.ListLeads)
	leads.POST("/sweep", s.authorize(authorization.ObjectLead, authorization.ActionLeadSweep), s.SweepLeads)
	leads.GET("/:id", s.authorize(authorization.ObjectLead, authorization.ActionLeadView), s.GetLead)
	leads.PATCH("/:id/status", s.authorize(authorization.ObjectLead, authorization.ActionLeadUpdate), s.UpdateLeadStatus)
	leads.POST("/:id/claim", s.authorize(authorization.ObjectLead, authorization.ActionLeadClaim), s.ClaimLead)
	leads.POST("/:id/assign", s.authorize(authorization.ObjectLead, authorization.ActionLeadAssign), s.AssignLead)

	payroll := api.Group("/payroll")
	payroll.GET("/period", s.authorize(authorization.ObjectPayroll, authorization.ActionPayrollView), s.GetPayPeriod)
	payroll.GET("/batches", s.authorize(authorization.ObjectPayroll, authorization.ActionPayrollView), s.ListPayrollBatches)
	payroll.POST("/batches", s.authorize(authorization.ObjectPayroll, authorization.ActionPayrollClose), s.ClosePayrollBatch)
	payroll.GET("/batches/:id", s.authorize(authorization.ObjectPayroll, authorization.ActionPayrollView), s.GetPayrollBatch)
	payroll.GET("/batches/:id/statements/:rep_id", s.authorize(authorization.ObjectPayroll, authorization.ActionPayrollView), s.DownloadStatement)
	payroll.POST("/batches/:id/send", s.authorize(authorization.ObjectPayroll, authorization.ActionPayrollSend), s.SendStatements)
}

// registerPublicRoutes serves the consumer site and payment provider callbacks.
// None of these routes carry a back office token.
func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public")

	public.POST("/analytics/page-views", s.TrackPageView)
	public.POST("/analytics/clicks", s.TrackClick)
	public.POST("/analytics/impressions", s.TrackImpressions)

	s.engine.POST("/webhooks/stripe", s.StripeWebhook)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
