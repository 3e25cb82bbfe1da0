package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/wordbattles/internal/dependencies/clock"
	"github.com/mcoot/wordbattles/internal/dependencies/random"
	"github.com/mcoot/wordbattles/internal/letters"
	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/services/rack"
	"github.com/mcoot/wordbattles/internal/services/scoring"
)

const (
	gameIDLength   = 12
	gameIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxIDAttempts  = 8
)

// ManagerConfig holds settings shared by every game instance
type ManagerConfig struct {
	TickInterval   time.Duration
	PersistTimeout time.Duration
	// Defaults fill options a caller leaves zero; unset fields fall back
	// to model.DefaultGameOptions
	Defaults model.GameOptions
}

// Manager hosts one Engine per game instance
type Manager struct {
	table       *letters.Table
	dictionary  scoring.WordChecker
	racks       rack.ServiceInterface
	recorder    SessionRecorder
	leaderboard LeaderboardUpdater
	clock       clock.Clock
	random      random.Random
	cfg         ManagerConfig
	logger      *slog.Logger

	mu      sync.RWMutex
	engines map[model.GameID]*Engine
}

// NewManager creates a new game Manager. recorder and leaderboard may be nil.
func NewManager(
	table *letters.Table,
	dictionary scoring.WordChecker,
	racks rack.ServiceInterface,
	recorder SessionRecorder,
	leaderboard LeaderboardUpdater,
	clock clock.Clock,
	random random.Random,
	cfg ManagerConfig,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		table:       table,
		dictionary:  dictionary,
		racks:       racks,
		recorder:    recorder,
		leaderboard: leaderboard,
		clock:       clock,
		random:      random,
		cfg:         cfg,
		logger:      logger,
		engines:     make(map[model.GameID]*Engine),
	}
}

// Create validates the options and hosts a new game instance for the player
func (m *Manager) Create(ctx context.Context, playerID model.PlayerID, opts model.GameOptions) (*Engine, error) {
	opts = opts.WithDefaultsFrom(m.cfg.Defaults.WithDefaults())
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newIDLocked()
	engine := NewEngine(EngineConfig{
		GameID:         id,
		PlayerID:       playerID,
		Options:        opts,
		TickInterval:   m.cfg.TickInterval,
		PersistTimeout: m.cfg.PersistTimeout,
	}, EngineDeps{
		Racks:       m.racks,
		Validator:   scoring.New(m.table, m.dictionary, opts.MinLength),
		Recorder:    m.recorder,
		Leaderboard: m.leaderboard,
		Clock:       m.clock,
		Logger:      m.logger,
	})
	m.engines[id] = engine

	m.logger.Info("game created",
		slog.String("game_id", string(id)),
		slog.String("player_id", string(playerID)),
		slog.Int("duration", opts.DurationSeconds),
		slog.Int("rack_size", opts.RackSize),
		slog.Int("min_length", opts.MinLength),
		slog.Bool("ai_enabled", opts.AI()),
	)
	return engine, nil
}

func (m *Manager) newIDLocked() model.GameID {
	for i := 0; i < maxIDAttempts; i++ {
		id := model.GameID(m.random.String(gameIDLength, gameIDAlphabet))
		if _, taken := m.engines[id]; !taken && id != "" {
			return id
		}
	}
	return model.GameID(uuid.NewString())
}

// Get returns the engine for a game instance
func (m *Manager) Get(id model.GameID) (*Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	engine, ok := m.engines[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return engine, nil
}

// GetOwned returns the engine only if playerID created it
func (m *Manager) GetOwned(id model.GameID, playerID model.PlayerID) (*Engine, error) {
	engine, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if engine.PlayerID() != playerID {
		return nil, model.ErrNotGameOwner
	}
	return engine, nil
}

// Remove tears the game instance down
func (m *Manager) Remove(id model.GameID) error {
	m.mu.Lock()
	engine, ok := m.engines[id]
	delete(m.engines, id)
	m.mu.Unlock()

	if !ok {
		return model.ErrGameNotFound
	}
	engine.Close()
	m.logger.Info("game removed", slog.String("game_id", string(id)))
	return nil
}

// CloseAll tears down every game instance
func (m *Manager) CloseAll() {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[model.GameID]*Engine)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, engine := range engines {
		engine := engine
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Close()
		}()
	}
	wg.Wait()
}

// Count returns the number of hosted game instances
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.engines)
}
