package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/standx-tools/volgate/internal/bot"
	"github.com/standx-tools/volgate/internal/config"
	"github.com/standx-tools/volgate/internal/handler"
	"github.com/standx-tools/volgate/internal/middleware"
	"github.com/standx-tools/volgate/internal/pkg/logger"
	"github.com/standx-tools/volgate/internal/settings"
	"github.com/standx-tools/volgate/internal/swap"
	"github.com/standx-tools/volgate/internal/venue"
	"github.com/visvasity/topic"
	"golang.org/x/time/rate"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)

	// 2. Initialize Core Services
	client, err := venue.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize venue client: %v", err)
	}

	volumeBot := bot.New(client, nil)
	go logBotEvents(volumeBot)

	swapSvc := swap.New(cfg.Swap)
	settingsStore := settings.NewStore(cfg.Settings.Path)

	// Authenticate at boot when a wallet key is configured; otherwise the
	// operator logs in through the control API.
	if cfg.Wallet.PrivateKey != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := client.Authenticate(ctx, cfg.Wallet.PrivateKey); err != nil {
			logger.Error("boot authentication failed", "error", err.Error())
		}
		cancel()
	}

	// 3. Initialize Handlers
	authHandler := handler.NewAuthHandler(client, volumeBot)
	tradingHandler := handler.NewTradingHandler(client)
	botHandler := handler.NewBotHandler(volumeBot, client, bot.Config{
		Symbol:        cfg.Bot.Symbol,
		MinSize:       cfg.Bot.MinSize,
		MaxSize:       cfg.Bot.MaxSize,
		IntervalMin:   cfg.Bot.IntervalMin,
		IntervalMax:   cfg.Bot.IntervalMax,
		PriceVariance: cfg.Bot.PriceVariance,
	})
	swapHandler := handler.NewSwapHandler(swapSvc, client)
	settingsHandler := handler.NewSettingsHandler(settingsStore)

	// 4. Setup Router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "volgate"})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.RateLimitMiddleware(rate.NewLimiter(rate.Limit(20), 40)))
	{
		v1.POST("/auth", authHandler.Authenticate)

		v1.GET("/symbols/:symbol", tradingHandler.GetSymbolInfo)
		v1.GET("/markets/:symbol", tradingHandler.GetMarket)
		v1.GET("/ticker/:symbol", tradingHandler.GetTicker)
		v1.GET("/balance", tradingHandler.GetBalance)
		v1.GET("/positions", tradingHandler.GetPositions)
		v1.GET("/orders", tradingHandler.GetOpenOrders)
		v1.POST("/orders", tradingHandler.PlaceOrder)
		v1.DELETE("/orders/:id", tradingHandler.CancelOrder)
		v1.DELETE("/orders", tradingHandler.CancelAll)
		v1.POST("/positions/close", tradingHandler.ClosePosition)
		v1.POST("/leverage", tradingHandler.ChangeLeverage)
		v1.GET("/points", tradingHandler.GetPoints)

		v1.POST("/bot/start", botHandler.Start)
		v1.POST("/bot/stop", botHandler.Stop)
		v1.GET("/bot/status", botHandler.Status)

		v1.GET("/swap/quote", swapHandler.GetQuote)
		v1.POST("/swap", swapHandler.Execute)
		v1.GET("/tokens/:token/balance", swapHandler.GetTokenBalance)

		v1.GET("/settings", settingsHandler.Load)
		v1.PUT("/settings", settingsHandler.Save)
	}

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("volgate started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	volumeBot.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("server exiting")
}

// logBotEvents mirrors the bot's event stream into the structured log.
func logBotEvents(b *bot.Bot) {
	receiver, err := topic.Subscribe(b.Events(), 0, false)
	if err != nil {
		logger.Error("could not subscribe to bot events", "error", err.Error())
		return
	}
	defer receiver.Close()

	for {
		event, err := receiver.Receive()
		if err != nil {
			return
		}
		switch event.Type {
		case bot.EventOrderResult:
			if event.Err != "" {
				logger.Warn("bot order rejected", "symbol", event.Symbol, "side", event.Side, "error", event.Err)
			} else {
				logger.Info("bot order placed", "symbol", event.Symbol, "side", event.Side,
					"qty", event.Qty, "price", event.Price)
			}
		case bot.EventSweep:
			logger.Info("bot sweep", "symbol", event.Symbol, "swept", event.Swept, "error", event.Err)
		default:
			logger.Info("bot "+string(event.Type), "symbol", event.Symbol)
		}
	}
}
