package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mkrenek/adwatch/internal/config"
	"github.com/mkrenek/adwatch/internal/engine"
	"github.com/mkrenek/adwatch/internal/fetch"
	"github.com/mkrenek/adwatch/internal/httpserver"
	"github.com/mkrenek/adwatch/internal/httpserver/deps"
	"github.com/mkrenek/adwatch/internal/logger"
	"github.com/mkrenek/adwatch/internal/notify"
	"github.com/mkrenek/adwatch/internal/redis"
	"github.com/mkrenek/adwatch/internal/retry"
	"github.com/mkrenek/adwatch/internal/scheduler"
	"github.com/mkrenek/adwatch/internal/singleflight"
	"github.com/mkrenek/adwatch/internal/sources/watchlist"
	"github.com/mkrenek/adwatch/internal/stats"
	"github.com/mkrenek/adwatch/internal/store/postgres"
	"github.com/mkrenek/adwatch/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	store       *postgres.Store
	eng         *engine.Engine
	sweeper     *scheduler.CheckSweeper
	newTags     *scheduler.NewTagSweeper
	retention   *scheduler.RetentionSweeper
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	redisClient, err := redis.New(context.Background(), redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDialTimeout,
		ReadTimeout:    cfg.RedisReadTimeout,
		WriteTimeout:   cfg.RedisWriteTimeout,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		PingTimeout:    cfg.RedisPingTimeout,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}

	// Postgres holds the listing state; migrations run on open.
	store, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		loggerClient.Errorf("Failed to open postgres: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("postgres initialized successfully")

	statsRecorder := stats.NewRecorder(redisClient, loggerClient)
	publisher := notify.NewPublisher(redisClient, loggerClient)

	fetcher := fetch.NewBazosFetcher(fetch.Options{
		BaseURL:   cfg.FetchBaseURL,
		Timeout:   cfg.FetchTimeout,
		MaxPages:  cfg.FetchMaxPages,
		PageDelay: cfg.FetchPageDelay,
	}, loggerClient)

	persistRetry := retry.Policy{
		MaxAttempts: cfg.PersistMaxAttempts,
		BaseDelay:   cfg.PersistBaseDelay,
		Retryable:   postgres.IsRetryable,
	}
	eng := engine.New(store, fetcher, statsRecorder, persistRetry, loggerClient)

	// Create manual check trigger channel and the sweep guard
	checkGuard := &singleflight.Guard{}
	checkTrigger := make(chan struct{}, 1)

	sweeper := scheduler.NewCheckSweeper(
		eng,
		store,
		publisher,
		checkGuard,
		loggerClient,
		cfg.CheckInterval,
		checkTrigger,
	)
	newTags := scheduler.NewNewTagSweeper(store, loggerClient, cfg.NewTagSweepInterval, cfg.NewTagWindow)
	retention := scheduler.NewRetentionSweeper(store, loggerClient, cfg.RetentionSweepEvery, cfg.RetentionWindow)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		Store:           store,
		RedisClient:     redisClient,
		Stats:           statsRecorder,
		Engine:          eng,
		CheckGuard:      checkGuard,
		CheckTrigger:    checkTrigger,
		SeedTimeout:     cfg.FetchTimeout * time.Duration(cfg.FetchMaxPages+1),
		AdsDefaultLimit: cfg.AdsDefaultLimit,
		TrustProxy:      cfg.TrustProxy,
		TriggerBurst:    cfg.CheckTriggerBurst,
		TriggerPerMin:   cfg.CheckTriggerPerMin,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		store:       store,
		eng:         eng,
		sweeper:     sweeper,
		newTags:     newTags,
		retention:   retention,
	}
}

func (a *App) Run() error {
	a.logger.Infof("Starting adwatch %s (commit=%s, built=%s, go=%s) on %s",
		version.Version, version.Commit, version.BuildDate, version.GoVersion, a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Register watchlist entries before the first sweep so it covers them.
	if a.cfg.WatchlistFile != "" {
		if err := a.registerWatchlist(ctx); err != nil {
			a.logger.Warn("watchlist registration failed", logger.Error(err))
		}
	}

	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start check sweeper: %w", err)
	}
	a.logger.Info("check sweeper started",
		logger.Duration("interval", a.cfg.CheckInterval))

	if err := a.newTags.Start(ctx); err != nil {
		return fmt.Errorf("failed to start new-tag sweeper: %w", err)
	}
	if err := a.retention.Start(ctx); err != nil {
		return fmt.Errorf("failed to start retention sweeper: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.sweeper.Stop()
	a.newTags.Stop()
	a.retention.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if err := a.store.Close(); err != nil {
		a.logger.Warnf("failed to close postgres: %v", err)
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		}
	}

	a.logger.Info("adwatch stopped cleanly")
	return nil
}

// registerWatchlist seeds subscribers and terms from the configured yaml
// file. Terms that already exist are left untouched, new ones get their
// initial listings stored without notifications.
func (a *App) registerWatchlist(ctx context.Context) error {
	config, err := watchlist.NewLoader(a.cfg.WatchlistFile).Load()
	if err != nil {
		return err
	}
	watches, err := watchlist.NewMapper().MapWatches(config)
	if err != nil {
		return err
	}

	registered := 0
	for _, w := range watches {
		term, created, err := a.store.AddTerm(ctx, w.SubscriberID, w.Term)
		if err != nil {
			a.logger.Warn("failed to register watchlist term",
				logger.String("subscriber", w.SubscriberID),
				logger.String("term", w.Term),
				logger.Error(err))
			continue
		}
		if !created {
			continue
		}
		registered++
		if _, err := a.eng.SeedTerm(ctx, term); err != nil {
			a.logger.Warn("failed to seed watchlist term",
				logger.String("subscriber", w.SubscriberID),
				logger.String("term", w.Term),
				logger.Error(err))
		}
	}

	a.logger.Info("watchlist registered",
		logger.Int("watches", len(watches)),
		logger.Int("new_terms", registered))
	return nil
}
