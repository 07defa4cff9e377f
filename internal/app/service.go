// Package service wires stores, domain services, the event bus and the HTTP
// API into one running process.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/kala/internal/adapters/http/api"
	"github.com/okian/kala/internal/adapters/http/auth"
	"github.com/okian/kala/internal/adapters/http/live"
	"github.com/okian/kala/internal/adapters/mq/bus"
	"github.com/okian/kala/internal/adapters/mq/worker"
	"github.com/okian/kala/internal/adapters/repository/memory"
	"github.com/okian/kala/internal/adapters/repository/mongostore"
	"github.com/okian/kala/internal/adapters/repository/pgstore"
	"github.com/okian/kala/internal/adapters/repository/redisstore"
	"github.com/okian/kala/internal/config"
	"github.com/okian/kala/internal/domain/dedupe"
	"github.com/okian/kala/internal/domain/keylock"
	"github.com/okian/kala/internal/domain/leaderboard"
	"github.com/okian/kala/internal/domain/marketplace"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/internal/domain/rating"
	"github.com/okian/kala/internal/seed"
	"github.com/okian/kala/pkg/logger"
	"github.com/okian/kala/pkg/metrics"
)

// ErrNotStarted is returned by accessors used before Start.
var ErrNotStarted = errors.New("service not started")

// liveTopics are fanned out to websocket clients.
var liveTopics = []string{model.TopicScoreRecorded, model.TopicArtistRatingUpdated}

// MarketplaceStore is one store serving both orders and reviews.
type MarketplaceStore interface {
	marketplace.Store
	rating.Store
}

type closer func(ctx context.Context) error

// Service owns the process-wide components.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	logger logger.Logger

	// Injected stores win over the configured backends.
	leaderboardStore leaderboard.Store
	marketplaceStore MarketplaceStore
	closers          []closer

	bus        *bus.Bus
	hub        *live.Hub
	dispatcher *worker.Pool
	deduper    dedupe.Deduper
	limiter    *auth.IPRateLimiter

	scores  *leaderboard.Service
	orders  *marketplace.Service
	ratings *rating.Service
	handler http.Handler

	started   bool
	startedAt time.Time
	seeded    seed.Result
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLeaderboardStore bypasses leaderboard_backend.
func WithLeaderboardStore(st leaderboard.Store) Option {
	return func(s *Service) {
		s.leaderboardStore = st
	}
}

// WithMarketplaceStore bypasses marketplace_backend.
func WithMarketplaceStore(st MarketplaceStore) Option {
	return func(s *Service) {
		s.marketplaceStore = st
	}
}

// New constructs a Service for cfg. A nil cfg means defaults.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the stores, wires the services and starts the event dispatcher.
// Calling Start on a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	log := s.logger.Named("service")
	log.Info(ctx, "starting kala service...",
		logger.String("leaderboardBackend", s.cfg.LeaderboardBackend),
		logger.String("marketplaceBackend", s.cfg.MarketplaceBackend),
	)

	if err := s.openStores(ctx); err != nil {
		s.closeStores(ctx)
		return err
	}

	s.bus = bus.New(s.cfg.EventBuffer, s.logger.Named("bus"))
	locks := keylock.New(0)

	s.scores = leaderboard.New(s.leaderboardStore,
		leaderboard.WithPublisher(s.bus),
		leaderboard.WithPageSizes(s.cfg.DefaultPageSize, s.cfg.MaxPageSize),
		leaderboard.WithLogger(s.logger.Named("leaderboard")),
		leaderboard.WithLocker(locks),
	)
	s.orders = marketplace.New(s.marketplaceStore,
		marketplace.WithPublisher(s.bus),
		marketplace.WithLogger(s.logger.Named("marketplace")),
	)
	s.ratings = rating.New(s.marketplaceStore,
		rating.WithPublisher(s.bus),
		rating.WithPageSizes(s.cfg.DefaultPageSize, s.cfg.MaxPageSize),
		rating.WithLogger(s.logger.Named("rating")),
		rating.WithLocker(locks),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))

	if s.cfg.SeedFile != "" {
		if err := s.applySeed(ctx); err != nil {
			s.teardown(ctx)
			return err
		}
	}

	s.hub = live.NewHub(
		live.WithClientBuffer(s.cfg.WSClientBuffer),
		live.WithLogger(s.logger.Named("live")),
	)
	s.dispatcher = worker.NewPool(s.cfg.EventWorkers, s.bus, s.hub, liveTopics,
		worker.WithName("dispatcher"),
		worker.WithLogger(s.logger),
	)
	// The pool outlives the Start call, so it runs on its own context.
	if err := s.dispatcher.Start(context.WithoutCancel(ctx)); err != nil {
		s.teardown(ctx)
		return fmt.Errorf("start dispatcher: %w", err)
	}

	s.handler = s.buildHandler()
	s.started = true
	s.startedAt = time.Now()
	log.Info(ctx, "kala service started",
		logger.Int("eventWorkers", s.dispatcher.Size()),
		logger.Int("dedupeSize", s.cfg.DedupeSize),
		logger.String("authMode", s.cfg.AuthMode),
	)
	if s.cfg.AuthMode == config.AuthModeHeader {
		log.Warn(ctx, "auth_mode is header: X-User-* headers are trusted as-is, including the admin role; use jwt outside local runs")
	}
	return nil
}

func (s *Service) openStores(ctx context.Context) error {
	var mdb *mongostore.DB
	mongoDB := func() (*mongostore.DB, error) {
		if mdb != nil {
			return mdb, nil
		}
		db, err := mongostore.Open(ctx, s.cfg.MongoURI, s.cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		mdb = db
		s.closers = append(s.closers, db.Close)
		return db, nil
	}

	if s.leaderboardStore == nil {
		switch s.cfg.LeaderboardBackend {
		case config.BackendRedis:
			client := redis.NewClient(&redis.Options{
				Addr:     s.cfg.RedisAddr,
				Password: s.cfg.RedisPassword,
				DB:       s.cfg.RedisDB,
			})
			s.closers = append(s.closers, func(context.Context) error { return client.Close() })
			st, err := redisstore.NewLeaderboardStore(ctx, &redisstore.Config{Client: client})
			if err != nil {
				return fmt.Errorf("open redis leaderboard: %w", err)
			}
			s.leaderboardStore = st
		case config.BackendMongo:
			db, err := mongoDB()
			if err != nil {
				return fmt.Errorf("open mongo leaderboard: %w", err)
			}
			s.leaderboardStore = mongostore.NewLeaderboardStore(db)
		default:
			s.leaderboardStore = memory.NewLeaderboardStore()
		}
	}

	if s.marketplaceStore == nil {
		switch s.cfg.MarketplaceBackend {
		case config.BackendPostgres:
			db, err := pgstore.Open(ctx, s.cfg.PostgresDSN)
			if err != nil {
				return fmt.Errorf("open postgres marketplace: %w", err)
			}
			s.closers = append(s.closers, func(context.Context) error { return db.Close() })
			group, err := pgstore.Migrate(ctx, db)
			if err != nil {
				return err
			}
			if !group.IsZero() {
				s.logger.Info(ctx, "applied marketplace migrations", logger.String("group", group.String()))
			}
			s.marketplaceStore = pgstore.NewMarketplaceStore(db)
		case config.BackendMongo:
			db, err := mongoDB()
			if err != nil {
				return fmt.Errorf("open mongo marketplace: %w", err)
			}
			s.marketplaceStore = mongostore.NewMarketplaceStore(db)
		default:
			s.marketplaceStore = memory.NewMarketplaceStore()
		}
	}
	return nil
}

func (s *Service) applySeed(ctx context.Context) error {
	catalog, err := seed.Load(s.cfg.SeedFile)
	if err != nil {
		return err
	}
	res, err := seed.Apply(ctx, catalog, s.marketplaceStore, s.scores, time.Now().UTC())
	if err != nil {
		return err
	}
	s.seeded = res
	s.logger.Info(ctx, "seed catalog applied",
		logger.String("file", s.cfg.SeedFile),
		logger.Int("orders", res.Orders),
		logger.Int("skippedOrders", res.SkippedOrders),
		logger.Int("scores", res.ScoresRecorded),
	)
	return nil
}

func (s *Service) buildHandler() http.Handler {
	var resolver auth.Resolver = auth.HeaderResolver{}
	if s.cfg.AuthMode == config.AuthModeJWT {
		resolver = auth.NewJWTResolver(s.cfg.JWTSecret)
	}
	opts := []api.Option{
		api.WithLiveHandler(s.hub),
		api.WithCORSOrigins(s.cfg.CORSAllowedOrigins),
		api.WithLogger(s.logger.Named("api")),
	}
	if s.cfg.RateLimitRPS > 0 {
		s.limiter = auth.NewIPRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst)
		opts = append(opts, api.WithRateLimiter(s.limiter))
	}
	return api.NewServer(api.Dependencies{
		Leaderboard: s.scores,
		Orders:      s.orders,
		Ratings:     s.ratings,
		Deduper:     s.deduper,
		Resolver:    resolver,
		Stats:       s,
	}, opts...).Handler()
}

// Handler returns the HTTP handler, or nil before Start.
func (s *Service) Handler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// Leaderboard returns the score service.
func (s *Service) Leaderboard() (*leaderboard.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.scores, nil
}

// Ratings returns the rating service.
func (s *Service) Ratings() (*rating.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.ratings, nil
}

// Stop shuts the dispatcher, the live hub, the bus and the stores down in that order.
// The HTTP server must already be stopped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping kala service...")
	err := s.teardown(ctx)
	s.started = false
	s.logger.Info(ctx, "kala service stopped")
	return err
}

func (s *Service) teardown(ctx context.Context) error {
	var errs []error
	if s.dispatcher != nil {
		if err := s.dispatcher.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("dispatcher: %w", err))
		}
		s.dispatcher = nil
	}
	if s.hub != nil {
		if err := s.hub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("live hub: %w", err))
		}
		s.hub = nil
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("bus: %w", err))
		}
		s.bus = nil
	}
	errs = append(errs, s.closeStores(ctx)...)
	return errors.Join(errs...)
}

func (s *Service) closeStores(ctx context.Context) []error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	s.closers = nil
	return errs
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":            s.started,
		"leaderboardBackend": s.cfg.LeaderboardBackend,
		"marketplaceBackend": s.cfg.MarketplaceBackend,
		"authMode":           s.cfg.AuthMode,
	}
	if !s.started {
		return stats
	}

	stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	stats["dispatcherWorkers"] = s.dispatcher.Size()
	stats["liveClients"] = s.hub.Clients()
	stats["idempotencyKeys"] = s.deduper.Size()
	stats["seededOrders"] = s.seeded.Orders
	if s.limiter != nil {
		stats["rateLimitedClients"] = s.limiter.Tracked()
	}

	players, err := s.scores.Players(ctx)
	if err != nil {
		s.logger.Warn(ctx, "failed to count players", logger.Error(err))
		metrics.RecordErrorByComponent("service", "count_players")
		return stats
	}
	stats["players"] = players
	metrics.UpdatePlayersTotal(players)
	return stats
}
