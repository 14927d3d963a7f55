package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"merchant-checkout/internal/api"
	"merchant-checkout/internal/config"
	"merchant-checkout/internal/db"
	"merchant-checkout/internal/logger"
	"merchant-checkout/internal/metrics"
	"merchant-checkout/internal/middleware"
	"merchant-checkout/internal/order"
	"merchant-checkout/internal/payment"
	"merchant-checkout/internal/product"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type app struct {
	router     *gin.Engine
	reconciler *order.Reconciler
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := logger.Init(cfg.AppEnv, cfg.LogLevel); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	l := logger.L()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.NewDatabase(cfg.DBURL)
	if err != nil {
		l.Fatal("database connection failed", zap.Error(err))
	}
	defer database.Close()

	if err := db.MigrateUp(database); err != nil {
		l.Fatal("migrations failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := newApp(cfg, database, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.reconciler.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Info("merchant checkout listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	l.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newApp wires repositories, services and the HTTP router.
func newApp(cfg *config.Config, database *sql.DB, reg *prometheus.Registry) *app {
	m := metrics.New(reg)

	productSvc := product.NewService(product.NewRepository(database))
	gateway := payment.NewVASPGateway(cfg.Gateway, m)
	paymentSvc := payment.NewService(gateway)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, productSvc, gateway, order.SettingsFromConfig(cfg.Merchant), m)

	router := api.NewRouter(api.RouterConfig{
		Handler:        api.NewHandler(productSvc, orderSvc, paymentSvc, database),
		Logger:         logger.Named("http"),
		Metrics:        m,
		Gatherer:       reg,
		Limiter:        middleware.NewRateLimiter(3 * time.Minute),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		AdminSecret:    cfg.Admin.JWTSecret,
	})

	return &app{
		router:     router,
		reconciler: order.NewReconciler(orderRepo, cfg.Merchant, m),
	}
}
