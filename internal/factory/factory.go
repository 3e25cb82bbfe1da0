package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/wordbattles/internal/api/sse"
	"github.com/mcoot/wordbattles/internal/config"
	"github.com/mcoot/wordbattles/internal/dependencies/clock"
	"github.com/mcoot/wordbattles/internal/dependencies/random"
	"github.com/mcoot/wordbattles/internal/letters"
	"github.com/mcoot/wordbattles/internal/publish"
	"github.com/mcoot/wordbattles/internal/services/auth"
	"github.com/mcoot/wordbattles/internal/services/dictionary"
	"github.com/mcoot/wordbattles/internal/services/game"
	"github.com/mcoot/wordbattles/internal/services/persistence"
	"github.com/mcoot/wordbattles/internal/services/rack"
	"github.com/mcoot/wordbattles/internal/storage"
	"github.com/mcoot/wordbattles/internal/storage/memory"
	redisstorage "github.com/mcoot/wordbattles/internal/storage/redis"
	sqlitestorage "github.com/mcoot/wordbattles/internal/storage/sqlite"
)

// App contains all wired application components
type App struct {
	Config *config.Config

	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Letters           *letters.Table
	DictionaryService *dictionary.Service
	RackService       *rack.Service
	Persistence       *persistence.Adapter
	GameManager       *game.Manager
	AuthService       *auth.Service
	HubManager        *sse.HubManager

	// Publisher is nil unless NATS is configured
	Publisher *publish.NATSPublisher

	logger *slog.Logger
}

// New creates a new application with all dependencies wired from cfg
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	var (
		publisher *publish.NATSPublisher
		sinks     []persistence.Sink
	)
	if cfg.NATS.URL != "" {
		publisher, err = publish.Connect(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			closeStorage(store)
			return nil, err
		}
		sinks = append(sinks, publisher)
	}

	app := newWithDependencies(cfg, store, clock.New(), random.New(), logger, sinks...)
	app.Publisher = publisher

	if err := app.loadDictionary(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func newStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.Type {
	case "", config.StorageMemory:
		return memory.New(), nil
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Redis.URL
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.GuestTTL > 0 {
			redisCfg.GuestTTL = cfg.Redis.GuestTTL
		}
		redisCfg.HistoryTTL = cfg.Redis.HistoryTTL
		store, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageSQLite:
		store, err := sqlitestorage.New(ctx, sqlitestorage.Config{Path: cfg.SQLite.Path}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("invalid storage type %q", cfg.Type)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	cfg *config.Config,
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
	sinks ...persistence.Sink,
) *App {
	table := letters.English()
	dictService := dictionary.New(store, logger)
	rackService := rack.New(table, rnd, logger)
	adapter := persistence.New(store, clk, persistence.Config{
		Attempts: cfg.Persistence.Attempts,
		Delay:    cfg.Persistence.Delay,
	}, logger, sinks...)
	manager := game.NewManager(
		table,
		dictService,
		rackService,
		adapter,
		adapter,
		clk,
		rnd,
		game.ManagerConfig{
			TickInterval:   cfg.Game.TickInterval,
			PersistTimeout: cfg.Game.PersistTimeout,
			Defaults:       cfg.Game.Options(),
		},
		logger,
	)
	authService := auth.New(store, clk, auth.Config{SessionDuration: cfg.Auth.SessionDuration}, logger)

	return &App{
		Config:            cfg,
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		Letters:           table,
		DictionaryService: dictService,
		RackService:       rackService,
		Persistence:       adapter,
		GameManager:       manager,
		AuthService:       authService,
		HubManager:        sse.NewHubManager(logger),
		logger:            logger,
	}
}

// loadDictionary loads the configured file, or the stored word set when no
// path is configured. Either falls back to the built-in list.
func (a *App) loadDictionary(ctx context.Context) error {
	if path := a.Config.Dictionary.Path; path != "" {
		return a.DictionaryService.Load(ctx, dictionary.FileProvider{Path: path})
	}
	return a.DictionaryService.Load(ctx, dictionary.StorageProvider{Store: a.Storage})
}

// Close tears down every game, discarding running sessions without recording
// them and waiting for in-flight persistence, then releases the publisher and
// storage
func (a *App) Close() error {
	a.GameManager.CloseAll()
	a.HubManager.Close()

	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	errs = append(errs, closeStorage(a.Storage))
	return errors.Join(errs...)
}

func closeStorage(store storage.Storage) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
