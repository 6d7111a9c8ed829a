package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	alertdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/alert/domain"
	cartdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/cart/domain"
	catalogdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/catalog/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/config"
	entitlementdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/entitlement/domain"
	gatewaydomain "github.com/appnity-softwares/digitalEcom-sub002/internal/gateway/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/observability"
	obslogger "github.com/appnity-softwares/digitalEcom-sub002/internal/observability/logger"
	obsmetrics "github.com/appnity-softwares/digitalEcom-sub002/internal/observability/metrics"
	obstracing "github.com/appnity-softwares/digitalEcom-sub002/internal/observability/tracing"
	orderdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/order/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger, m *obsmetrics.Metrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obstracing.GinMiddleware(obsCfg.ServiceName))
	r.Use(m.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", m.Handler())

	return r
}

func registerGin(obsCfg observability.Config, log *zap.Logger, m *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(obsCfg, log, m)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
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
	engine     *gin.Engine
	log        *zap.Logger
	cartSvc    cartdomain.Service
	catalogSvc catalogdomain.Service
	orderSvc   orderdomain.Service
	gatewaySvc gatewaydomain.Service
	grantorSvc entitlementdomain.Service
	alertSvc   alertdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Log        *zap.Logger
	CartSvc    cartdomain.Service
	CatalogSvc catalogdomain.Service
	OrderSvc   orderdomain.Service
	GatewaySvc gatewaydomain.Service
	GrantorSvc entitlementdomain.Service
	AlertSvc   alertdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Gin,
		log:        p.Log.Named("http.server"),
		cartSvc:    p.CartSvc,
		catalogSvc: p.CatalogSvc,
		orderSvc:   p.OrderSvc,
		gatewaySvc: p.GatewaySvc,
		grantorSvc: p.GrantorSvc,
		alertSvc:   p.AlertSvc,
	}
}

func RegisterRoutes(s *Server) {
	s.engine.POST("/webhooks/payment", s.handlePaymentWebhook)

	api := s.engine.Group("/api")
	api.GET("/catalog", s.handleListCatalog)

	buyer := api.Group("", requireBuyer())
	buyer.POST("/orders", s.handleCreateOrder)
	buyer.GET("/orders", s.handleListOrders)
	buyer.GET("/orders/:id", s.handleGetOrder)
	buyer.GET("/entitlements", s.handleListEntitlements)
}

// buyerHeader carries the resolved buyer identity. The engine never
// derives identity on its own.
const buyerHeader = "X-Buyer-Ref"

func requireBuyer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(buyerHeader) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func buyerRef(c *gin.Context) string {
	return c.GetHeader(buyerHeader)
}
