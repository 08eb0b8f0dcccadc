package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/guild-bag/internal/adapter/handler"
	"github.com/rl1809/guild-bag/internal/adapter/storage"
	"github.com/rl1809/guild-bag/internal/bot"
	"github.com/rl1809/guild-bag/internal/config"
	"github.com/rl1809/guild-bag/internal/core/service"
	"github.com/rl1809/guild-bag/internal/logging"
	"github.com/rl1809/guild-bag/internal/port"
)

// app is the wired bot: store, service, command router and dispatcher.
type app struct {
	cfg        config.Config
	log        *logrus.Entry
	repo       port.StateRepository
	svc        *service.BagService
	dispatcher *bot.Dispatcher

	closers []func() error
}

// openRepository connects the configured backend. The returned redis client
// is non-nil whenever one was opened, so idempotency can share it.
func (a *app) openRepository(ctx context.Context) (*redis.Client, error) {
	st := a.cfg.Storage
	var rdb *redis.Client
	if st.RedisAddr != "" && (st.Backend == config.BackendRedis || a.cfg.Dispatch.Idempotency == "redis") {
		rdb = redis.NewClient(&redis.Options{Addr: st.RedisAddr, PoolSize: 10})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		a.log.WithField("addr", st.RedisAddr).Info("connected to redis")
	}

	switch st.Backend {
	case config.BackendFile:
		adapter := storage.NewFileAdapter(st.Path)
		a.log.WithField("path", adapter.Path()).Debug("using data file")
		a.repo = adapter
	case config.BackendMemory:
		a.repo = storage.NewMemoryAdapter()
	case config.BackendRedis:
		a.repo = storage.NewRedisAdapter(rdb, st.RedisKey)
	case config.BackendSQLite:
		db, err := storage.OpenSQLite(st.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		adapter := storage.NewSQLiteAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.repo = adapter
	case config.BackendMySQL:
		db, err := sql.Open("mysql", st.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect mysql: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		a.closers = append(a.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping mysql: %w", err)
		}
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.repo = adapter
		a.log.Info("connected to mysql")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", st.Backend)
	}
	return rdb, nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg, log: logging.NewLogger("guildbag")}

	rdb, err := a.openRepository(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.svc, err = service.NewBagService(ctx, a.repo, cfg.PageSize)
	if err != nil {
		a.Close()
		return nil, err
	}

	var dedup port.IdempotencyRepository
	if cfg.Dispatch.Idempotency == "redis" {
		dedup = storage.NewRedisAdapter(rdb, cfg.Storage.RedisKey).WithIdempotencyTTL(cfg.Dispatch.IdempotencyTTL)
	} else {
		dedup = storage.NewMemoryIdempotency(cfg.Dispatch.IdempotencyTTL)
	}

	router := bot.NewRouter(cfg.Prefix)
	handler.RegisterCommands(router, a.svc)
	responder := bot.NewResponder(cfg.Prefix, logging.NewLogger("responder"))
	a.dispatcher = bot.NewDispatcher(router, responder, dedup, cfg.Dispatch.QueueSize, logging.NewLogger("dispatcher"))

	a.log.WithFields(logrus.Fields{
		"backend": cfg.Storage.Backend,
		"prefix":  cfg.Prefix,
	}).Info("guild bag loaded")
	return a, nil
}

// Close drains the dispatcher and closes connections in reverse order.
func (a *app) Close() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}
