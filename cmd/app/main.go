package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minemechanics/internal/bot"
	"minemechanics/internal/ccpayment"
	"minemechanics/internal/config"
	"minemechanics/internal/db"
	httpServer "minemechanics/internal/http"
	"minemechanics/internal/http/middleware"
	"minemechanics/internal/logger"
	"minemechanics/internal/repository"
	"minemechanics/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

const version = "1.0.0"

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")
	cfg := config.Load()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// Conversation state durability is a deployment choice: in-memory by
	// default, Redis when flows must survive a restart.
	var states bot.StateStore = bot.NewMemoryStore()
	if cfg.StateStore == "redis" && cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		states = bot.NewRedisStore(rdb)
		logger.Info("using redis conversation state store")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal("telegram auth failed", "error", err)
	}
	notifier := bot.NewNotifier(api, cfg.AdminChatID)

	userRepo := repository.NewUserRepository(dbPool)
	paymentRepo := repository.NewPaymentRepository(dbPool)
	minerRepo := repository.NewMinerRepository(dbPool)
	settingsRepo := repository.NewSettingsRepository(dbPool)

	auditSvc := service.NewAuditService(dbPool)
	ledgerSvc := service.NewLedgerService(userRepo)
	econSvc := service.NewEconomicsService(minerRepo, userRepo, settingsRepo, auditSvc, cfg.MinMinerPrice, cfg.APYPercent)

	provider := ccpayment.NewClient(cfg.CCPayAppID, cfg.CCPayAppSecret, cfg.CCPayAPI)
	invoiceSvc := service.NewInvoiceService(provider, paymentRepo, auditSvc, notifier.NotifyAdmin,
		cfg.ServerBaseURL+"/api/ccpayment/webhook", cfg.ReturnURL, cfg.MinDeposit, cfg.MaxDeposit)
	reconcileSvc := service.NewReconcileService(paymentRepo, auditSvc, notifier.NotifyAdmin)

	b := bot.New(api, states, invoiceSvc, econSvc, ledgerSvc, notifier)
	go b.Start()

	r := gin.Default()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	httpServer.RegisterRoutes(r, dbPool, invoiceSvc, reconcileSvc, ledgerSvc, auditSvc, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
