package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/draftlens/internal/api/rest"
	"github.com/fortuna/draftlens/internal/api/websocket"
	"github.com/fortuna/draftlens/internal/browser"
	"github.com/fortuna/draftlens/internal/cache"
	"github.com/fortuna/draftlens/internal/config"
	"github.com/fortuna/draftlens/internal/controller"
	"github.com/fortuna/draftlens/internal/insights"
	"github.com/fortuna/draftlens/internal/logger"
	"github.com/fortuna/draftlens/internal/parser/sites"
	"github.com/fortuna/draftlens/internal/publisher"
	"github.com/fortuna/draftlens/internal/store"
	"github.com/fortuna/draftlens/internal/store/repository"
)

const (
	serviceName    = "draftlens"
	serviceVersion = "1.0.0"

	redisRetries    = 30
	redisRetryDelay = 2 * time.Second
)

func main() {
	cfg := config.Load()
	logger.Init(logger.IsDev(), cfg.LogLevel)
	log := logger.Log

	log.Info().Str("service", serviceName).Str("version", serviceVersion).Msg("starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewDatabase(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}
	log.Info().Msg("database ready")

	redisCache := connectRedis(cfg.RedisURL)
	defer redisCache.Close()

	sessions := repository.NewSessionRepository(db)
	snapshots := repository.NewSnapshotRepository(db)

	b, err := browser.New(ctx, browser.Options{
		Headless:  cfg.Headless,
		LoadDelay: cfg.PageLoadDelay,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start browser")
	}
	defer b.Close()

	page, err := b.Open(ctx, cfg.DraftURL)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.DraftURL).Msg("failed to open draft page")
	}
	defer page.Close()

	manager := sites.NewManager(page, cfg.Timing())
	if p, ok := manager.ParserForURL(page.URL()); ok {
		log.Info().Str("parser", p.Name()).Str("url", page.URL()).Msg("draft page recognized")
	} else {
		log.Warn().Str("url", page.URL()).Msg("no parser for draft page yet, waiting for navigation")
	}

	// the feed needs the controller for its initial board and the
	// controller needs the feed as broadcaster
	var ctrl *controller.Controller
	wsServer := websocket.NewServer(boardFunc(func(ctx context.Context) (*controller.Board, error) {
		return ctrl.Board(ctx)
	}))

	ctrl = controller.New(page, manager, controller.Deps{
		Insights:    insights.New(cfg.InsightsAPIBase, cfg.InsightsTimeout),
		Sessions:    sessions,
		Cache:       redisCache,
		Publisher:   publisher.NewRedisPublisher(redisCache.Client()),
		Snapshots:   snapshots,
		Broadcaster: wsServer,
	}, controller.Config{
		PollInterval:    cfg.PollInterval,
		RefreshInterval: cfg.RefreshInterval,
		RequiredCount:   cfg.RequiredCount,
		ScoringType:     cfg.ScoringType,
		TeamContext:     cfg.TeamContext,
		InsightTTL:      cfg.InsightsCacheTTL,
	})

	go ctrl.Start(ctx)
	log.Info().Dur("poll_interval", cfg.PollInterval).Msg("controller started")

	handler := rest.NewHandler(ctrl, sessions, map[string]rest.HealthChecker{
		"postgres": db,
		"redis":    redisCache,
	})
	restServer := rest.NewServer(cfg.RESTPort, handler)
	go func() {
		if err := restServer.Start(); err != nil {
			log.Error().Err(err).Msg("rest server stopped")
		}
	}()

	go func() {
		if err := wsServer.Start(cfg.WSPort); err != nil {
			log.Error().Err(err).Msg("websocket server stopped")
		}
	}()

	log.Info().Str("rest_port", cfg.RESTPort).Str("ws_port", cfg.WSPort).Msg("draftlens started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("rest server shutdown")
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("websocket server shutdown")
	}

	log.Info().Msg("draftlens stopped")
}

// connectRedis retries until Redis accepts connections.
func connectRedis(url string) *cache.RedisCache {
	var (
		c   *cache.RedisCache
		err error
	)
	for i := 0; i < redisRetries; i++ {
		c, err = cache.NewRedisCache(url)
		if err == nil {
			logger.Log.Info().Msg("connected to redis")
			return c
		}
		logger.Log.Warn().Err(err).Int("attempt", i+1).Int("max", redisRetries).Dur("retry_in", redisRetryDelay).Msg("redis connection failed")
		time.Sleep(redisRetryDelay)
	}
	logger.Log.Fatal().Err(err).Msg("failed to connect to redis")
	return nil
}

type boardFunc func(ctx context.Context) (*controller.Board, error)

func (f boardFunc) Board(ctx context.Context) (*controller.Board, error) { return f(ctx) }
