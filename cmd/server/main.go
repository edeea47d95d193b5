package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/rs/zerolog/log"

	"github.com/ytakahashi/zikr-companion/internal/config"
	"github.com/ytakahashi/zikr-companion/internal/handlers"
	"github.com/ytakahashi/zikr-companion/internal/logging"
	"github.com/ytakahashi/zikr-companion/internal/services"
	"github.com/ytakahashi/zikr-companion/internal/tracker"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.LogLevel, false)
	if envErr != nil {
		log.Info().Msg("no .env file found")
	}

	ctx := context.Background()
	store, closeStore, err := services.NewStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create tracker store")
	}
	defer closeStore()

	trackers := tracker.NewRegistry(store, cfg.KeyPrefix, tracker.WithClock(tracker.SystemClock{Location: cfg.Location}))

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	handlers.NewAPIHandler(trackers).Register(e)

	if cfg.LineEnabled() {
		bot, err := messaging_api.NewMessagingApiAPI(cfg.LineChannelToken)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create LINE bot client")
		}
		webhookHandler := handlers.NewWebhookHandler(bot, cfg.LineChannelSecret, trackers)
		e.POST("/webhook", webhookHandler.HandleWebhook)
	} else {
		log.Info().Msg("LINE credentials not set, webhook disabled")
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}
