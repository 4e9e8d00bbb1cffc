package main

import (
	"fmt"

	"contract-announcer/internal/announcer/config"
	"contract-announcer/internal/announcer/repository"
	"contract-announcer/internal/announcer/service"
	"contract-announcer/internal/entity"
	"contract-announcer/pkg/logger"
	"contract-announcer/pkg/migration"
	"contract-announcer/pkg/postgres"
	"contract-announcer/pkg/redis"
	"contract-announcer/pkg/telegram"

	"go.uber.org/zap"
)

// application holds the wired dependencies of a process.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *postgres.DB
	redis    *redis.Client
	pipeline service.PipelineService
}

func bootstrap(path string) (*application, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Info("Starting contract announcer", zap.String("name", cfg.App.Name), zap.String("env", cfg.App.Env))

	app := &application{cfg: cfg, log: appLogger}

	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}

	// Schema migration is an explicit startup step, separate from the per-run logic.
	migrator, err := migration.New(postgresCfg.URL(), appLogger)
	if err != nil {
		app.Close()
		return nil, err
	}
	err = migrator.Up()
	migrator.Close()
	if err != nil {
		app.Close()
		return nil, err
	}

	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.db = db

	locker := repository.NewNoopRunLocker()
	if cfg.RunLock.Enabled && cfg.Redis.Host != "" {
		redisClient, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.redis = redisClient
		locker = repository.NewRedisRunLocker(redisClient.Client, cfg.RunLock.Key, cfg.RunLock.TTL)
	}

	publisher, err := telegram.NewClient(telegram.Config{
		BotToken:    cfg.Telegram.BotToken,
		ChatID:      cfg.Telegram.ChatID,
		APIEndpoint: cfg.Telegram.APIEndpoint,
		Timeout:     cfg.Telegram.Timeout,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize Telegram publisher: %w", err)
	}

	ledger := repository.NewCachedAnnouncementRepository(
		repository.NewAnnouncementRepository(db.DB),
		cfg.Pipeline.AnnouncedCacheTTL,
	)
	source := repository.NewSAMRepository(cfg.SAM, appLogger)

	maxLen := cfg.Pipeline.MessageMaxLen
	driver := service.NewPublisherDriver(
		service.PublisherDriverConfig{
			MaxRetries:   cfg.Pipeline.MaxRetries,
			RetryBackoff: cfg.Pipeline.RetryBackoff,
			PublishDelay: cfg.Pipeline.PublishDelay,
		},
		ledger,
		publisher,
		func(o entity.RankedOpportunity) string { return telegram.FormatOpportunity(o, maxLen) },
		appLogger,
	)

	app.pipeline = service.NewPipelineService(
		cfg,
		source,
		service.NewNormalizer(appLogger),
		service.NewRanker(service.NewScorer(service.PolicyFromConfig(cfg.Scoring))),
		driver,
		locker,
		appLogger,
	)

	return app, nil
}

// Close releases connections and flushes the logger.
func (a *application) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Failed to close Redis", logger.ErrorField(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", logger.ErrorField(err))
		}
	}
	_ = a.log.Sync()
}
