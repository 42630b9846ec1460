// kidgate coordinates child check-ins, pickup alerts, and the live feeds
// behind the leader console, parent portal, and public alert panel.
//
// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal slice packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"kidgate/internal/checkin"
	checkinhandler "kidgate/internal/checkin/handler"
	checkinmetrics "kidgate/internal/checkin/metrics"
	"kidgate/internal/events"
	"kidgate/internal/feeds"
	"kidgate/internal/identity"
	"kidgate/internal/media"
	"kidgate/internal/platform/config"
	"kidgate/internal/platform/httpserver"
	"kidgate/internal/platform/logger"
	"kidgate/internal/platform/metrics"
	platformredis "kidgate/internal/platform/redis"
	"kidgate/internal/portal"
	httptransport "kidgate/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := events.NewBroker(cfg.SubscriberBuffer, log)
	defer broker.Close()

	// instanceID lets the Redis bridge drop this instance's own messages.
	instanceID := uuid.NewString()

	var publisher events.Publisher = events.NewBrokerPublisher(broker)
	health := map[string]httptransport.HealthCheck{}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connect failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		publisher = events.NewRedisPublisher(redisClient.Client, broker, instanceID, log)
		health["redis"] = redisClient.Health
	}

	var store checkin.Store
	if cfg.PostgresURL != "" {
		db, err := checkin.NewPostgresDB(cfg.PostgresURL)
		if err != nil {
			log.Error("postgres connect failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		store = checkin.NewPostgresStore(db)
	} else {
		log.Warn("no postgres configured, using in-memory store")
		store = checkin.NewInMemoryStore()
	}
	health["store"] = store.Health

	var (
		dir      identity.Directory
		children identity.ChildDirectory
	)
	if cfg.DirectoryURL != "" {
		httpDir := identity.NewHTTPDirectory(cfg.DirectoryURL)
		dir = httpDir
		children = httpDir
	} else {
		log.Warn("no directory configured, portal lookups will find nobody")
		dir = identity.NewInMemoryDirectory()
		children = identity.NewInMemoryChildDirectory()
	}

	service := checkin.NewService(store, publisher, media.NewInMemoryStore(),
		log, checkinmetrics.New(), checkin.Options{
			StoreTimeout:   cfg.StoreTimeout,
			CodeAttempts:   cfg.CodeAttempts,
			PortalPageSize: cfg.PortalPageSize,
		})

	tokens := portal.NewTokenService(cfg.PortalSigningKey, cfg.PortalTokenTTL)
	resolver := identity.NewResolver(dir)

	router := httptransport.NewRouter(httptransport.Deps{
		CheckIns: checkinhandler.New(service, log, tokens),
		Portal:   portal.New(resolver, tokens, log),
		Feeds:    feeds.New(service, broker, children, tokens, log, cfg.SnapshotInterval),
		Logger:   log,
		Metrics:  metrics.New(),
		Health:   health,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	if redisClient != nil {
		bridge := events.NewBridge(redisClient.Client, broker, instanceID, log)
		g.Go(func() error {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		log.Info("starting kidgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
}
