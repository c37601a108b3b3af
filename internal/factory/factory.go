package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/andersCTO/monstrens-natt/internal/dependencies/clock"
	"github.com/andersCTO/monstrens-natt/internal/dependencies/random"
	"github.com/andersCTO/monstrens-natt/internal/dependencies/scheduler"
	"github.com/andersCTO/monstrens-natt/internal/faction"
	"github.com/andersCTO/monstrens-natt/internal/services/assign"
	"github.com/andersCTO/monstrens-natt/internal/services/scoring"
	"github.com/andersCTO/monstrens-natt/internal/services/session"
	"github.com/andersCTO/monstrens-natt/internal/storage"
	"github.com/andersCTO/monstrens-natt/internal/storage/memory"
	redisstorage "github.com/andersCTO/monstrens-natt/internal/storage/redis"
	"github.com/andersCTO/monstrens-natt/internal/transport/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock     clock.Clock
	Random    random.Random
	Scheduler scheduler.Scheduler

	// Services
	Catalog           *faction.Catalog
	AssignService     *assign.Service
	ScoringService    *scoring.Service
	SessionController *session.Controller

	// Transport
	Hub              *ws.Hub
	EventRouter      *ws.EventRouter
	WebsocketHandler *ws.Handler
}

// Config holds configuration for the application factory
type Config struct {
	// SessionConfig holds session rules (optional)
	// If zero value, defaults to session.DefaultConfig()
	SessionConfig session.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	sessionCfg := cfg.SessionConfig
	if sessionCfg.MinPlayersToStart == 0 {
		sessionCfg = session.DefaultConfig()
	}

	return NewWithDependencies(store, clock.New(), random.New(), scheduler.New(), sessionCfg, logger), nil
}

// NewWithDependencies creates an App with the given dependencies, letting
// tests substitute mocks for time, randomness and scheduling.
func NewWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	sched scheduler.Scheduler,
	sessionCfg session.Config,
	logger *slog.Logger,
) *App {
	catalog := faction.NewCatalog(rnd)
	assignService := assign.New(catalog, rnd, logger)
	scoringService := scoring.New()
	sessionController := session.NewController(
		store, assignService, scoringService, catalog, clk, rnd, sched, logger, sessionCfg)

	hub := ws.NewHub(logger)
	eventRouter := ws.NewEventRouter(sessionController, catalog, hub, logger)
	sessionController.SetNotifier(eventRouter)
	wsHandler := ws.NewHandler(eventRouter, logger)

	return &App{
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		Scheduler:         sched,
		Catalog:           catalog,
		AssignService:     assignService,
		ScoringService:    scoringService,
		SessionController: sessionController,
		Hub:               hub,
		EventRouter:       eventRouter,
		WebsocketHandler:  wsHandler,
	}
}
