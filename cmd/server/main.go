package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "duelarena/internal/adapter/http"
	metricsinmem "duelarena/internal/adapter/metrics/inmemory"
	"duelarena/internal/adapter/notify"
	"duelarena/internal/adapter/notify/natspub"
	presenceinmem "duelarena/internal/adapter/presence/inmemory"
	"duelarena/internal/adapter/presence/redispresence"
	gormrepo "duelarena/internal/adapter/repo/gorm"
	"duelarena/internal/adapter/repo/memory"
	"duelarena/internal/app/identity"
	"duelarena/internal/app/ports"
	"duelarena/internal/app/roomstate"
	"duelarena/internal/app/session"
	"duelarena/internal/app/turn"
	"duelarena/internal/app/watcher"
	"duelarena/internal/domain/duel"
	"duelarena/internal/platform/config"
	"duelarena/internal/platform/logging"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

type backend struct {
	rooms   ports.RoomRepository
	turns   ports.TurnRepository
	tx      ports.RoomTxManager
	evictor ports.RoomEvictor
	close   func() error
}

func buildBackend(ctx context.Context, cfg config.Config, logger zerolog.Logger) (backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		mem := memory.NewStore()
		return backend{
			rooms:   memory.NewRoomRepo(mem),
			turns:   memory.NewTurnRepo(mem),
			tx:      memory.NewTxManager(mem),
			evictor: mem,
			close:   func() error { return nil },
		}, nil
	case config.DriverPostgres, config.DriverSQLite:
		var (
			db  *gorm.DB
			err error
		)
		if cfg.StoreDriver == config.DriverPostgres {
			db, err = gormrepo.OpenPostgres(cfg.DSN)
		} else {
			db, err = gormrepo.OpenSQLite(cfg.DSN)
		}
		if err != nil {
			return backend{}, err
		}
		if cfg.StoreDriver == config.DriverPostgres && cfg.AutoMigrate {
			applied, err := gormrepo.ApplyMigrations(ctx, db, cfg.MigrationsDir)
			if err != nil {
				return backend{}, err
			}
			logger.Info().Strs("versions", applied).Msg("migrations applied")
		}
		sqlDB, err := db.DB()
		if err != nil {
			return backend{}, err
		}
		tx := gormrepo.NewTxManager(db)
		return backend{
			rooms:   gormrepo.NewRoomRepo(db),
			turns:   gormrepo.NewTurnRepo(db),
			tx:      tx,
			evictor: gormrepo.NewEvictor(db, tx),
			close:   sqlDB.Close,
		}, nil
	default:
		return backend{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// tokenSecret returns the configured secret, or a random one; tokens signed
// with a random secret do not survive a restart.
func tokenSecret(cfg config.Config, logger zerolog.Logger) ([]byte, error) {
	if cfg.TokenSecret != "" {
		return []byte(cfg.TokenSecret), nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}
	logger.Warn().Msg("DUEL_TOKEN_SECRET not set; participant tokens will not survive a restart")
	return []byte(hex.EncodeToString(b)), nil
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	be, err := buildBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	defer func() {
		if err := be.close(); err != nil {
			logger.Warn().Err(err).Msg("close store")
		}
	}()

	store := roomstate.Store{
		Rooms: be.rooms,
		Turns: be.turns,
		Tx:    be.tx,
		Rules: duel.Rules{MaxHP: cfg.MaxHP, TurnDuration: cfg.TurnDuration},
		Clock: time.Now,
	}
	recorder := metricsinmem.NewRecorder()
	hub := httpadapter.NewHub(nil, logger)
	sinks := notify.Fanout{hub}

	if cfg.NATSURL != "" {
		nc, err := natspub.Connect(cfg.NATSURL, logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer func() { _ = nc.Drain() }()
		sinks = append(sinks, natspub.NewPublisher(nc, cfg.NATSPrefix, logger))
	}

	var presence ports.PresenceTracker = presenceinmem.NewTracker()
	if cfg.RedisAddr != "" {
		client := redispresence.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		presence = redispresence.NewTracker(client, cfg.PresenceTTL)
	}

	resolver := turn.Resolver{
		Store:    store,
		Notifier: sinks,
		Metrics:  recorder,
		Logger:   logger.With().Str("component", "resolver").Logger(),
	}
	supervisor := watcher.NewSupervisor(resolver, cfg.WatchInterval, logger)
	uc := session.UseCase{
		Store:      store,
		Resolver:   resolver,
		Watchers:   supervisor,
		Notifier:   sinks,
		Presence:   presence,
		StrictJoin: cfg.StrictJoin,
		Logger:     logger.With().Str("component", "session").Logger(),
	}
	hub.SetStates(uc)

	secret, err := tokenSecret(cfg, logger)
	if err != nil {
		return err
	}
	h := httpadapter.Handler{
		Session:     uc,
		Identity:    identity.Issuer{Secret: secret, TTL: cfg.TokenTTL, Now: time.Now},
		Hub:         hub,
		KPI:         recorder,
		Logger:      logger.With().Str("component", "http").Logger(),
		SubmitRate:  rate.Limit(cfg.SubmitRate),
		SubmitBurst: cfg.SubmitBurst,
	}

	resumed, err := supervisor.Resume(ctx, be.rooms)
	if err != nil {
		return fmt.Errorf("resume watchers: %w", err)
	}
	logger.Info().Int("rooms", resumed).Msg("watchers resumed")

	janitor := watcher.Janitor{
		Evictor:     be.evictor,
		Supervisor:  supervisor,
		IdleTimeout: cfg.IdleTimeout,
		Interval:    cfg.EvictInterval,
		Now:         time.Now,
		Logger:      logger.With().Str("component", "janitor").Logger(),
	}

	s := server.Default(server.WithHostPorts(cfg.HTTPAddr))
	s.NoHijackConnPool = true
	h.RegisterRoutes(s.Engine)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreDriver).Msg("duelarena listening")
		if err := s.Run(); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return janitor.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := s.Shutdown(shutdownCtx)
		if werr := supervisor.Shutdown(shutdownCtx); werr != nil {
			err = errors.Join(err, werr)
		}
		return err
	})
	return g.Wait()
}
