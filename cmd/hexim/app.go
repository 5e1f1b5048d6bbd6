package main

import (
	"context"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/Kentzo-Omakse/hexim/config"
	"github.com/Kentzo-Omakse/hexim/internal/batch"
	"github.com/Kentzo-Omakse/hexim/internal/customization"
	"github.com/Kentzo-Omakse/hexim/internal/preload"
	"github.com/Kentzo-Omakse/hexim/internal/provision"
	"github.com/Kentzo-Omakse/hexim/internal/repositories/links"
	"github.com/Kentzo-Omakse/hexim/internal/repositories/mappingfields"
	"github.com/Kentzo-Omakse/hexim/internal/repositories/updates"
	"github.com/Kentzo-Omakse/hexim/internal/scheduler"
	"github.com/Kentzo-Omakse/hexim/pkg/database"
	"github.com/Kentzo-Omakse/hexim/pkg/events"
	"github.com/Kentzo-Omakse/hexim/pkg/kafka"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/plenty"
	"github.com/Kentzo-Omakse/hexim/pkg/redis"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/Kentzo-Omakse/hexim/pkg/startup"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing/exporters"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// app holds the wired collaborators of one process.
type app struct {
	cfg      *config.Config
	settings config.Settings
	logger   ectologger.Logger

	db        database.DB
	redis     *redis.Client
	producer  *kafka.Producer
	target    *shopware.Client
	source    *plenty.Client
	queue     *updates.Repository
	links     *links.Repository
	overrides *mappingfields.Repository
	driver    *batch.Driver
	scheduler *scheduler.Scheduler

	startup         *startup.Startup
	shutdownTracing func(context.Context) error
}

func newLogger(cfg *config.Config) (ectologger.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %s", cfg.LogLevel)
	}
	zapCfg.Level = level

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}

// loadConfig reads the environment and the sync settings file.
func loadConfig() (*config.Config, config.Settings, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Settings{}, err
	}
	if settingsPath != "" {
		cfg.SyncSettingsFile = settingsPath
	}

	settings, err := config.LoadSettings(cfg.SyncSettingsFile)
	if err != nil {
		return nil, config.Settings{}, err
	}
	return cfg, settings, nil
}

func databaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		User:            cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}
}

// openDatabase connects only the database, for the commands that need
// nothing else.
func openDatabase(ctx context.Context) (*config.Config, database.DB, ectologger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.Open(ctx, databaseConfig(cfg), logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, db, logger, nil
}

// newApp loads the configuration and starts the connections. attempts
// bounds the startup retries.
func newApp(ctx context.Context, attempts int) (*app, error) {
	cfg, settings, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, settings: settings, logger: logger}
	a.startup = startup.NewStartup(logger, attempts).Add(
		startup.Func{ID: "tracing", StartFn: a.startTracing, StopFn: a.stopTracing},
		startup.Func{ID: "database", StartFn: a.startDatabase, StopFn: func(context.Context) error { return a.db.Close() }},
		startup.Func{ID: "redis", StartFn: a.startRedis, StopFn: func(context.Context) error { return a.redis.Close() }},
		startup.Func{ID: "kafka", StartFn: a.startKafka, StopFn: a.stopKafka},
		startup.Func{ID: "sync", StartFn: func(context.Context) error { return a.wire() }},
	)
	if err := a.startup.Start(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) startTracing(ctx context.Context) error {
	cfg := a.cfg
	if !cfg.TracingEnabled {
		return nil
	}

	shutdown, err := tracing.Setup(ctx, cfg.AppName, exporters.OTLPConfig{
		Endpoint: cfg.OTLPEndpoint,
		Protocol: cfg.OTLPProtocol,
		Insecure: cfg.OTLPInsecure,
		Timeout:  time.Duration(cfg.OTLPTimeoutSecs) * time.Second,
	})
	if err != nil {
		return err
	}
	a.shutdownTracing = shutdown
	return nil
}

func (a *app) stopTracing(ctx context.Context) error {
	if a.shutdownTracing == nil {
		return nil
	}
	return a.shutdownTracing(ctx)
}

func (a *app) startDatabase(ctx context.Context) error {
	db, err := database.Open(ctx, databaseConfig(a.cfg), a.logger)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *app) startRedis(ctx context.Context) error {
	cfg := a.cfg
	rdb, err := redis.NewClient(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, a.logger)
	if err != nil {
		return err
	}
	a.redis = rdb
	return nil
}

func (a *app) startKafka(context.Context) error {
	cfg := a.cfg
	if !cfg.KafkaEnabled {
		return nil
	}

	a.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaEventsTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, a.logger)
	return nil
}

func (a *app) stopKafka(context.Context) error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}

func (a *app) wire() error {
	cfg := a.cfg

	a.target = shopware.NewClient(shopware.Config{
		URL:          cfg.ShopwareURL,
		ClientID:     cfg.ShopwareClientID,
		ClientSecret: cfg.ShopwareClientSecret,
	}, a.logger)
	a.source = plenty.NewClient(plenty.Config{
		URL:      cfg.PlentyURL,
		Username: cfg.PlentyUsername,
		Password: cfg.PlentyPassword,
	}, a.logger)

	a.queue = updates.NewRepository(a.db, a.logger)
	a.links = links.NewRepository(a.db, a.logger)
	a.overrides = mappingfields.NewRepository(a.db, a.logger)

	dispatcher := events.NewDispatcher(a.logger)
	if a.producer != nil {
		dispatcher.Subscribe(events.NewKafkaListener(a.producer))
	}

	custom, err := customization.New(a.settings.Customization, customization.Deps{
		Target: a.target,
		Languages: ectolinq.Map(a.settings.Languages, func(l config.Language) mapping.Language {
			return mapping.Language{ID: l.ID, Code: l.Code}
		}),
		Logger: a.logger,
	})
	if err != nil {
		return err
	}

	provisioner := provision.NewProvisioner(a.target, a.settings, a.logger)
	pipeline := preload.NewPipeline(a.links, a.target, dispatcher, provisioner, a.settings, a.logger)

	a.driver = batch.NewDriver(batch.Deps{
		Queue:         a.queue,
		Links:         a.links,
		Overrides:     a.overrides,
		Source:        a.source,
		Target:        a.target,
		Pipeline:      pipeline,
		Customization: custom,
		Dispatcher:    dispatcher,
		Logger:        a.logger,
	}, a.settings, cfg.SyncBatchSize)

	a.scheduler = scheduler.NewScheduler(a.driver, redis.NewLocker(a.redis, "lock:"), scheduler.Config{
		Interval: cfg.SyncInterval,
		LockTTL:  cfg.SyncLockTTL,
	}, a.logger)
	return nil
}

func (a *app) close(ctx context.Context) {
	if err := a.startup.Stop(ctx); err != nil {
		a.logger.WithContext(ctx).WithError(err).Warn("Failed to close all connections")
	}
}
