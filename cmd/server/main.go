package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nie11kun/price-comparator/internal/config"
	"github.com/nie11kun/price-comparator/internal/database"
	"github.com/nie11kun/price-comparator/internal/exchange"
	"github.com/nie11kun/price-comparator/internal/handler"
	"github.com/nie11kun/price-comparator/internal/middleware"
	"github.com/nie11kun/price-comparator/internal/repository"
	"github.com/nie11kun/price-comparator/internal/scheduler"
	"github.com/nie11kun/price-comparator/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	_ = godotenv.Load()
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := database.RunMigrations(cfg.DatabaseURL()); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	priceRepo := repository.NewPriceRepository(pool)
	converter := exchange.New(cfg.ExchangeRateAPIURL, cfg.ExchangeRateAPIKey)
	if len(cfg.FallbackRates) > 0 {
		converter.SetFallbackRates(cfg.FallbackRates)
	}
	updateService := service.NewUpdateService(
		priceRepo, converter, service.DefaultScraperFactory,
		cfg.TargetRegions, cfg.ExcludedRegions, cfg.ScrapeDelay,
	)
	priceService := service.NewPriceService(priceRepo)

	sched := scheduler.New(updateService)
	if err := sched.Register(cfg.ScrapeInterval); err != nil {
		log.Fatal().Err(err).Msg("failed to register scheduled update")
	}
	sched.Start()
	defer sched.Stop()

	if cfg.RunOnStart {
		go sched.RunNow()
	}

	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())
	router.Use(gin.Recovery())

	healthHandler := handler.NewHealthHandler(pool)
	priceHandler := handler.NewPriceHandler(priceService)
	updateHandler := handler.NewUpdateHandler(updateService)

	router.GET("/health", healthHandler.Health)
	router.GET("/api/prices", priceHandler.GetPrices)
	router.GET("/admin/trigger-update", updateHandler.TriggerUpdate)
	router.POST("/admin/trigger-update", updateHandler.TriggerUpdate)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // trigger-update runs the pipeline synchronously
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
