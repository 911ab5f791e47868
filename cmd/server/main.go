package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	echoapi "github.com/monthwrap/integrations/api/echo"
	"github.com/monthwrap/integrations/cache"
	redicache "github.com/monthwrap/integrations/cache/redis"
	"github.com/monthwrap/integrations/config"
	"github.com/monthwrap/integrations/domain"
	"github.com/monthwrap/integrations/internal/metrics"
	"github.com/monthwrap/integrations/internal/providers"
	"github.com/monthwrap/integrations/mongodb"
	"github.com/monthwrap/integrations/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogger(cfg)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db_name", cfg.MongoDBName).
		Str("log_level", cfg.LogLevel).
		Msg("Starting integrations server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect MongoDB client")
		}
	}()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure MongoDB indexes")
	}

	store := mongodb.NewIntegrationRepository(db)

	httpClient := providers.NewHTTPClient(cfg.UpstreamTimeout())

	stravaCreds, _ := cfg.ProviderCredentials(domain.ProviderStrava)
	spotifyCreds, _ := cfg.ProviderCredentials(domain.ProviderSpotify)
	googleCreds, _ := cfg.ProviderCredentials(domain.ProviderGoogleCalendar)

	strava := providers.NewStravaAdapter(stravaCreds, httpClient)
	spotify := providers.NewSpotifyAdapter(spotifyCreds, httpClient)
	google := providers.NewGoogleAdapter(googleCreds, httpClient)

	tokens := services.NewTokenLifecycleService(store, map[domain.Provider]providers.Adapter{
		domain.ProviderStrava:         strava,
		domain.ProviderSpotify:        spotify,
		domain.ProviderGoogleCalendar: google,
	})
	calendar := services.NewCalendarService(tokens, google, store)

	summaries := newSummaryCache(cfg)
	wrap := services.NewWrapService(tokens, strava, spotify, calendar, summaries, nil)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	echoapi.NewIntegrationsAPI(tokens, calendar, wrap, strava, spotify).RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

func initLogger(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}

func newSummaryCache(cfg *config.ServerConfig) cache.SummaryCache {
	if cfg.RedisAddr == "" {
		return cache.NewMemorySummaryCache(cfg.WrapCacheTTL())
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return redicache.NewSummaryCache(client, "monthwrap", cfg.WrapCacheTTL())
}
