package svc

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"folio/internal/application/port"
	"folio/internal/application/service"
	"folio/internal/domain/model"
	domainservice "folio/internal/domain/service"
	"folio/internal/infrastructure/bus/redisbus"
	"folio/internal/infrastructure/config"
	"folio/internal/infrastructure/marketdata/sqliteledger"
	"folio/internal/infrastructure/marketdata/wsfeed"
	memoryrepo "folio/internal/infrastructure/storage/memory"
	postgresrepo "folio/internal/infrastructure/storage/postgres"
	redisrepo "folio/internal/infrastructure/storage/redis"
	sqliterepo "folio/internal/infrastructure/storage/sqlite"
)

// ServiceContext is the composition root. All dependency wiring happens here,
// in dependency order, and Close unwinds it in reverse.
type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	ledger      *sqliteledger.Source
	store       port.SnapshotStore
	redisClient *redisclient.Client
	bus         *redisbus.Bus
	feed        *wsfeed.Feed
	sweeper     *cron.Cron

	Performance  *service.PerformanceService
	Backfill     *service.BackfillService
	Invalidation *service.InvalidationHandler

	closerChain []func() error
}

func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		closerChain: make([]func() error, 0),
	}
	if err := sc.initializeComponents(); err != nil {
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

func (sc *ServiceContext) initializeComponents() error {
	if err := sc.initLedger(); err != nil {
		return fmt.Errorf("ledger initialization failed: %w", err)
	}
	if sc.Config.Redis.Addr != "" {
		if err := sc.initRedis(); err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
	}
	if err := sc.initStore(); err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	withholding := make(map[string]decimal.Decimal, len(sc.Config.App.Withholding))
	for jur, rate := range sc.Config.App.Withholding {
		withholding[jur] = decimal.NewFromFloat(rate)
	}
	adjuster := domainservice.NewAdjuster(withholding)

	cache := service.NewCacheService(sc.store)
	sc.Performance = service.NewPerformanceService(
		cache, sc.ledger, sc.ledger, sc.ledger, sc.ledger, sc.ledger, adjuster)
	sc.Backfill = service.NewBackfillService(sc.ledger, sc.Performance, sc.Config.App.BackfillWorkers)
	sc.Invalidation = service.NewInvalidationHandler(cache)

	if sc.Config.Marketdata.Enabled {
		if sc.bus == nil {
			return ErrBusUnavailable
		}
		sc.feed = wsfeed.New(sc.Config.Marketdata.WsURL, sc.bus)
	}

	log.Info().
		Str("backend", sc.Config.Storage.Backend).
		Bool("bus", sc.bus != nil).
		Bool("marketdata", sc.feed != nil).
		Msg("components initialized")
	return nil
}

func (sc *ServiceContext) initLedger() error {
	ledger, err := sqliteledger.New(sc.Config.Ledger.Path)
	if err != nil {
		return err
	}
	sc.ledger = ledger
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing ledger")
		return ledger.Close()
	})
	log.Info().Str("path", sc.Config.Ledger.Path).Msg("ledger opened")
	return nil
}

func (sc *ServiceContext) initRedis() error {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	sc.redisClient = rdb
	sc.bus = redisbus.New(rdb, sc.Config.Redis.BusChannel)
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})
	log.Info().Str("addr", sc.Config.Redis.Addr).Int("db", sc.Config.Redis.DB).Msg("redis connected")
	return nil
}

func (sc *ServiceContext) initStore() error {
	switch sc.Config.Storage.Backend {
	case "memory":
		sc.store = memoryrepo.New()

	case "sqlite":
		repo, err := sqliterepo.New(sc.Config.Storage.Sqlite.Path)
		if err != nil {
			return err
		}
		sc.store = repo
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing sqlite snapshot store")
			return repo.Close()
		})

	case "postgres":
		repo, err := postgresrepo.New(sc.Config.Storage.Postgres.DSN)
		if err != nil {
			return err
		}
		sc.store = repo
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing postgres snapshot store")
			return repo.Close()
		})

	case "redis":
		if sc.redisClient == nil {
			return fmt.Errorf("redis backend selected but redis connection missing")
		}
		ttl := time.Duration(sc.Config.Redis.TTLMin) * time.Minute
		// Client lifetime is owned by initRedis; the repo must not close it.
		sc.store = redisrepo.New(sc.redisClient, sc.Config.Redis.KeyPrefix, ttl)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, sc.Config.Storage.Backend)
	}

	log.Info().Str("backend", sc.Config.Storage.Backend).Msg("snapshot store ready")
	return nil
}

// StartWorkers launches the long-running pieces: the invalidation consumer,
// the market-data feed and the nightly event sweep. All of them stop when ctx
// is cancelled.
func (sc *ServiceContext) StartWorkers(ctx context.Context) error {
	if sc.bus != nil {
		go func() {
			if err := sc.Invalidation.Run(ctx, sc.bus); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("invalidation consumer stopped")
			}
		}()
	}

	if sc.feed != nil {
		go sc.feed.Run(ctx)
	}

	sweeper := cron.New()
	_, err := sweeper.AddFunc(sc.Config.App.EventSweepCron, func() {
		sc.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("event sweep schedule %q: %w", sc.Config.App.EventSweepCron, err)
	}
	sweeper.Start()
	sc.sweeper = sweeper
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("stopping event sweep")
		<-sweeper.Stop().Done()
		return nil
	})
	log.Info().Str("cron", sc.Config.App.EventSweepCron).Msg("event sweep scheduled")
	return nil
}

// runSweep recomputes the lookback window for every portfolio, picking up
// corporate events recorded since the last run.
func (sc *ServiceContext) runSweep(ctx context.Context) {
	to := model.Today()
	from := to.AddDays(-sc.Config.App.LookbackDays)
	if err := sc.Backfill.Run(ctx, from, to); err != nil {
		log.Error().Err(err).Msg("event sweep failed")
	}
}

// Publisher exposes the invalidation bus for embedding callers that record
// transactions. Nil when redis is not configured.
func (sc *ServiceContext) Publisher() port.InvalidationPublisher {
	if sc.bus == nil {
		return nil
	}
	return sc.bus
}

func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	return nil
}
