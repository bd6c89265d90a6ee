package main

import (
	"context"
	"fmt"
	"time"

	"github.com/meetsmatch/swipeclient/internal/api"
	"github.com/meetsmatch/swipeclient/internal/cache"
	"github.com/meetsmatch/swipeclient/internal/config"
	"github.com/meetsmatch/swipeclient/internal/database"
	"github.com/meetsmatch/swipeclient/internal/discovery"
	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
	"github.com/meetsmatch/swipeclient/internal/interfaces"
	"github.com/meetsmatch/swipeclient/internal/monitoring"
	"github.com/meetsmatch/swipeclient/internal/session"
	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

// app is everything a command needs, built once per invocation
type app struct {
	cfg     *config.Config
	client  *api.Client
	session *session.Manager
	store   interfaces.DecisionStore
	inst    *monitoring.ClientInstrumentation
	health  *monitoring.HealthChecker

	closers []func()
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logConfig := telemetry.LoadLogConfigFromEnv()
	if opts.verbose {
		logConfig.Level = telemetry.DebugLevel
	}
	if err := telemetry.InitGlobalLogger(logConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg}

	otelConfig := telemetry.LoadConfigFromEnv()
	otelConfig.ServiceVersion = version
	shutdown, err := telemetry.InitializeOpenTelemetry(ctx, otelConfig)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	a.inst, err = monitoring.NewClientInstrumentation()
	if err != nil {
		a.close()
		return nil, err
	}

	a.health = monitoring.NewHealthChecker(otelConfig.ServiceName, version)

	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store, err = monitoring.InstrumentStore(store, cfg.DecisionStore)
	if err != nil {
		a.close()
		return nil, err
	}

	a.session = session.NewManager(a.store, cfg.SessionTTL)
	a.client, err = api.NewClient(cfg.APIBaseURL,
		api.WithTimeout(cfg.APITimeout),
		api.WithTokenSource(a.session),
		api.WithUnauthorizedHandler(a.session.HandleUnauthorized),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	a.health.RegisterCheck("backend", func(ctx context.Context) error {
		_, err := a.client.Me(ctx)
		// a rejected token still proves the backend answers
		if apperrors.IsAuthentication(err) {
			return nil
		}
		return err
	}, 2*time.Second)

	return a, nil
}

func (a *app) openStore(ctx context.Context) (interfaces.DecisionStore, error) {
	logger := telemetry.GetContextualLogger(ctx).WithField("decision_store", a.cfg.DecisionStore)

	switch a.cfg.DecisionStore {
	case config.StoreRedis:
		store, err := cache.NewRedisDecisionStore(ctx, &cache.RedisConfig{
			Host:      a.cfg.Redis.Host,
			Port:      a.cfg.Redis.Port,
			Password:  a.cfg.Redis.Password,
			DB:        a.cfg.Redis.DB,
			PoolSize:  a.cfg.Redis.PoolSize,
			KeyPrefix: a.cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { store.Close() })
		a.health.RegisterCheck("decision_store", store.Health, 500*time.Millisecond)
		logger.Debug("Using Redis decision store")
		return store, nil

	case config.StorePostgres:
		db, err := database.NewConnection(ctx, database.Config{
			Host:     a.cfg.Postgres.Host,
			Port:     a.cfg.Postgres.Port,
			User:     a.cfg.Postgres.User,
			Password: a.cfg.Postgres.Password,
			DBName:   a.cfg.Postgres.DBName,
			SSLMode:  a.cfg.Postgres.SSLMode,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { db.Close() })
		a.health.RegisterCheck("decision_store", db.Health, time.Second)
		logger.Debug("Using Postgres decision store")
		return database.NewDecisionRepository(db), nil

	case config.StoreSQLite:
		db, err := database.OpenSQLite(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { db.Close() })
		a.health.RegisterCheck("decision_store", db.Health, 250*time.Millisecond)
		logger.WithField("path", a.cfg.SQLitePath).Debug("Using SQLite decision store")
		return database.NewSQLiteDecisionRepository(db), nil

	default:
		a.health.RegisterCheck("decision_store", func(context.Context) error { return nil }, 0)
		return discovery.NewMemoryStore(), nil
	}
}

// login starts the session for the configured token
func (a *app) login(ctx context.Context) (*session.Session, error) {
	if a.cfg.AuthToken == "" {
		return nil, apperrors.NewValidationError("token", "set AUTH_TOKEN or pass --token")
	}
	return a.session.Login(ctx, a.cfg.AuthToken, a.client)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
