package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"saborlimeno/gorest/config"
	"saborlimeno/gorest/events"
	"saborlimeno/gorest/logging"
	"saborlimeno/gorest/services"
	"saborlimeno/gorest/store"
	"saborlimeno/gorest/utils"
)

// app holds the backends shared by every command. With STORE=memory the
// process runs self contained: in-memory sessions and no Kafka.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    store.Store
	sessions store.Sessions
	events   events.Publisher

	closers []func(context.Context) error
}

// setup loads configuration, installs the logger and returns a context that
// is cancelled on SIGINT or SIGTERM.
func setup() (context.Context, context.CancelFunc, *config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	log := logging.Setup(serviceName, cfg.IsProduction())
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return logging.WithContext(ctx, log), stop, cfg, log, nil
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, events: events.Nop{}}

	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on exit")
		a.store = store.NewMemory()
		a.sessions = store.NewMemorySessions()
		return a, nil
	}

	client, err := utils.InitMongoClient(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Disconnect)
	m := store.NewMongo(client.Database(cfg.MongoDB))
	if err := m.EnsureIndexes(ctx); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	a.store = m
	log.Info("connected to mongo", "db", cfg.MongoDB)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	a.sessions = store.NewRedisSessions(rdb, cfg.SessionTTL)

	if len(cfg.KafkaBrokers) > 0 {
		w := events.NewKafkaWriter(cfg.KafkaBrokers, cfg.EventsTopic, log)
		a.closers = append(a.closers, func(context.Context) error { return w.Close() })
		a.events = events.NewKafkaPublisher(w)
	}
	return a, nil
}

func (a *app) gateway() services.Gateway {
	if a.cfg.StripeSecretKey == "" {
		return services.OfflineGateway{}
	}
	return services.NewStripeGateway(a.cfg.StripeSecretKey)
}

// close runs the closers in reverse order of registration.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}
