package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/cache"
	"github.com/oggyb/ember/internal/config"
	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/events"
	"github.com/oggyb/ember/internal/jobs"
	"github.com/oggyb/ember/internal/logger"
	"github.com/oggyb/ember/internal/push"
	"github.com/oggyb/ember/internal/realtime"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/server"
	"github.com/oggyb/ember/internal/service/account"
	"github.com/oggyb/ember/internal/service/billing"
	"github.com/oggyb/ember/internal/service/calls"
	"github.com/oggyb/ember/internal/service/discovery"
	"github.com/oggyb/ember/internal/service/gifts"
	"github.com/oggyb/ember/internal/service/icebreakers"
	"github.com/oggyb/ember/internal/service/likes"
	"github.com/oggyb/ember/internal/service/messaging"
	"github.com/oggyb/ember/internal/service/notifications"
	"github.com/oggyb/ember/internal/service/profile"
	"github.com/oggyb/ember/internal/service/safety"
	"github.com/oggyb/ember/internal/service/venues"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return err
	}

	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return err
	}

	registry := realtime.NewRegistry(log)
	var bus realtime.Bus = realtime.NewLocalBus(registry)
	if cfg.Realtime.Bus == "redis" {
		rb := realtime.NewRedisBus(redisCache.Client, registry, log)
		if err := rb.Start(ctx); err != nil {
			log.Error("failed to subscribe realtime bus", "err", err)
			return err
		}
		defer rb.Close()
		bus = rb
	}

	opts := []app.Option{}

	if cfg.AMQP.URL != "" {
		publisher, err := events.NewRabbit(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Warn("amqp unavailable, events disabled", "err", err)
		} else {
			defer publisher.Close()
			opts = append(opts, app.WithEvents(publisher))
		}
	}

	if cfg.Notifications.Store == "mongo" {
		store, disconnect, err := mongoStore(ctx, cfg)
		if err != nil {
			log.Error("failed to init mongo notification store", "err", err)
			return err
		}
		defer disconnect()
		opts = append(opts, app.WithNotificationStore(store))
	}

	if wp := push.NewWebPush(cfg); wp.Enabled() {
		opts = append(opts, app.WithPush(wp))
	} else {
		log.Info("web push disabled, VAPID keys not set")
	}

	appCtx := app.New(cfg, database, redisCache, log, bus, registry, opts...)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	registrars := []server.Registrar{
		account.NewRegistrar(appCtx),
		profile.NewRegistrar(appCtx),
		discovery.NewRegistrar(appCtx),
		likes.NewRegistrar(appCtx),
		messaging.NewRegistrar(appCtx),
		venues.NewRegistrar(appCtx),
		safety.NewRegistrar(appCtx),
		calls.NewRegistrar(appCtx),
		billing.NewRegistrar(appCtx),
		gifts.NewRegistrar(appCtx),
		icebreakers.NewRegistrar(appCtx),
		notifications.NewRegistrar(appCtx),
	}
	engine := server.NewRouter(appCtx, registrars...)

	ws := realtime.NewHandler(cfg, appCtx.Auth, registry,
		realtime.DefaultRouter(bus, repository.NewMatchRepository(database), repository.NewCallRepository(database),
			repository.NewBlockRepository(database), log),
		log)
	ws.Register(engine.Group(""))

	if _, err := jobs.Start(ctx, appCtx, jobs.NewMatchSweeper(appCtx)); err != nil {
		log.Error("failed to schedule jobs", "err", err)
		return err
	}

	log.Info("starting HTTP server", "addr", cfg.Addr(), "env", cfg.App.ENV)
	return server.StartHTTPServer(ctx, cfg, engine)
}

func mongoStore(ctx context.Context, cfg *config.Config) (*repository.MongoNotificationStore, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Notifications.MongoURI))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	store := repository.NewMongoNotificationStore(client.Database(cfg.Notifications.MongoDB), cfg.Notifications.TTL)
	if err := store.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	disconnect := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(shutdownCtx)
	}
	return store, disconnect, nil
}
