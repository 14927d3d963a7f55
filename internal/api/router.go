package api

import (
	"merchant-checkout/internal/logger"
	"merchant-checkout/internal/metrics"
	"merchant-checkout/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Handler        *Handler
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Limiter        *middleware.RateLimiter
	AllowedOrigins []string
	AdminSecret    string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.Recovery(cfg.Logger),
		logger.RequestID(),
		middleware.AccessLog(cfg.Logger),
		middleware.Metrics(cfg.Metrics),
		middleware.CORS(cfg.AllowedOrigins),
	)
	if cfg.Limiter != nil {
		r.Use(cfg.Limiter.Middleware())
	}

	h := cfg.Handler
	admin := middleware.AdminAuth(cfg.AdminSecret)

	r.GET("/healthz", h.Health)
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(cfg.Gatherer)))
	}

	r.GET("/products", h.ListProducts)
	r.POST("/payments", h.Checkout)
	r.GET("/orders/:order_id", h.GetOrder)
	r.GET("/orders/:order_id/payment", h.GetOrderPayment)

	r.POST("/payments/:payment_id/payout", admin, h.Payout)
	r.POST("/payments/:payment_id/refund", admin, h.Refund)

	adminGroup := r.Group("/admin", admin)
	adminGroup.GET("/orders/orphaned", h.ListOrphanedOrders)

	return r
}
