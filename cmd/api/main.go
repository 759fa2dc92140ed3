package main

import (
	"log"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	httpadp "lendcore-backend/internal/adapter/http"
	"lendcore-backend/internal/adapter/middleware"
	"lendcore-backend/internal/adapter/repository/mysql"
	"lendcore-backend/internal/config"
	"lendcore-backend/internal/gateway/daraja"
	"lendcore-backend/internal/infrastructure/cache"
	"lendcore-backend/internal/infrastructure/db"
	"lendcore-backend/internal/logging"
	"lendcore-backend/internal/usecase/fundguard"
	"lendcore-backend/internal/usecase/origination"
	"lendcore-backend/internal/usecase/payment"

	"time"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal(err)
	}
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}

	uow := mysql.NewGormUoW(gdb)
	guard := fundguard.New(mysql.NewFundRepository(gdb), logger)
	sequencer := origination.NewCodeSequencer(nil)
	decision := origination.NewDecisionEngine(cfg.AutoApproveCeiling)
	orig := origination.NewService(uow, sequencer, decision, guard, cfg.Products, logger)

	gw := daraja.NewClient(daraja.Config{
		BaseURL:        cfg.DarajaBaseURL,
		ConsumerKey:    cfg.DarajaConsumerKey,
		ConsumerSecret: cfg.DarajaConsumerSecret,
	}, daraja.NewRedisTokenCache(rdb), logger)
	pay := payment.NewUsecase(uow, gw, cfg.Products, logger)

	h := httpadp.NewHandler()
	appH := httpadp.NewApplicationHandler(orig)
	payH := httpadp.NewPaymentHandler(pay)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	idemp := middleware.Idempotency(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)

	// routes
	e.GET("/health", h.Health)
	e.POST("/applications", appH.Submit, idemp)
	e.GET("/applications/:code", appH.Get)
	e.POST("/applications/:code/approve", appH.Approve, idemp)
	e.POST("/applications/:code/reject", appH.Reject, idemp)
	e.POST("/applications/:code/disburse", appH.Disburse, idemp)
	e.POST("/checkouts", payH.CreateCheckout, idemp)
	e.POST("/payments/callback", payH.Callback)
	e.POST("/loans/:code/payout", payH.CreatePayOut, idemp)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
