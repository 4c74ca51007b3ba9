package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billingdomain "github.com/smallbiznis/autobill/internal/billing/domain"
	"github.com/smallbiznis/autobill/internal/clock"
	"github.com/smallbiznis/autobill/internal/config"
	customerdomain "github.com/smallbiznis/autobill/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	"github.com/smallbiznis/autobill/internal/observability"
	obsmiddleware "github.com/smallbiznis/autobill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/autobill/internal/observability/metrics"
	obstracing "github.com/smallbiznis/autobill/internal/observability/tracing"
	"github.com/smallbiznis/autobill/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
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
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http.server.failed", zap.Error(err))
				}
			}()
			log.Info("http.server.started", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			err := srv.Shutdown(shutdownCtx)
			return errors.Join(err, s.background.Stop(shutdownCtx))
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	clock        clock.Clock
	invoiceSvc   invoicedomain.Service
	customerSvc  customerdomain.Service
	billingSvc   billingdomain.Service
	adminLimiter *ratelimit.AdminTriggerLimiter
	background   *backgroundRunner
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Clock        clock.Clock
	InvoiceSvc   invoicedomain.Service
	CustomerSvc  customerdomain.Service
	BillingSvc   billingdomain.Service
	AdminLimiter *ratelimit.AdminTriggerLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          log.Named("server"),
		clock:        p.Clock,
		invoiceSvc:   p.InvoiceSvc,
		customerSvc:  p.CustomerSvc,
		billingSvc:   p.BillingSvc,
		adminLimiter: p.AdminLimiter,
		background:   newBackgroundRunner(log.Named("server.background")),
	}

	svc.registerRESTRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRESTRoutes() {
	rest := s.engine.Group("/rest")

	rest.GET("/health", s.Health)

	v1 := rest.Group("/v1")

	// -------- Invoices --------
	v1.GET("/invoices", s.ListInvoices)
	v1.GET("/invoices/:id", s.GetInvoiceByID)
	v1.GET("/invoices/status/:status", s.ListInvoicesByStatus)

	// -------- Customers --------
	v1.GET("/customers", s.ListCustomers)
	v1.GET("/customers/:id", s.GetCustomerByID)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/rest/v1/admin")

	admin.POST("/autoBilling", s.AdminTriggerRateLimit(), s.TriggerAutoBilling)
	admin.POST("/billByStatus/:status", s.AdminTriggerRateLimit(), s.BillByStatus)
	admin.POST("/billInvoice/:id", s.AdminTriggerRateLimit(), s.BillInvoice)
	admin.POST("/markAsPermanentFail/:status", s.AdminTriggerRateLimit(), s.MarkAsPermanentFail)
	admin.POST("/updateInvoiceStatus/:id/:status", s.UpdateInvoiceStatus)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
