package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/islab/coordinates-registry/internal/api"
	"github.com/islab/coordinates-registry/internal/api/handler"
	"github.com/islab/coordinates-registry/internal/core/ports"
	"github.com/islab/coordinates-registry/internal/core/service"
	"github.com/islab/coordinates-registry/internal/infrastructure/broadcast"
	mongostore "github.com/islab/coordinates-registry/internal/infrastructure/db/mongo"
	sqlstore "github.com/islab/coordinates-registry/internal/infrastructure/db/postgres"
	redisdb "github.com/islab/coordinates-registry/internal/infrastructure/db/redis"
	"github.com/islab/coordinates-registry/internal/infrastructure/queue"
	"github.com/islab/coordinates-registry/internal/infrastructure/token"
	"github.com/islab/coordinates-registry/internal/pkg/config"
	"github.com/islab/coordinates-registry/pkg/logger"
)

const serviceName = "coordinates-registry"

// @title                       Coordinates Registry API
// @version                     1.0
// @description                 Shared coordinates with per-owner modification rights and admin consent.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: serviceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// store is the persistence backend selected by STORE_DRIVER.
type store struct {
	users   ports.UserRepository
	coords  ports.CoordinatesRepository
	persons ports.PersonRepository
	tx      ports.Transactor
	ping    handler.Pinger
	close   func(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Store.Driver {
	case "mongo":
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &store{
			users:   mongostore.NewUserRepository(db),
			coords:  mongostore.NewCoordinatesRepository(db),
			persons: mongostore.NewPersonRepository(db),
			tx:      mongostore.NewTransactor(client, db),
			ping:    handler.PingerFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) }),
			close:   client.Disconnect,
		}, nil

	case "postgres", "sqlite":
		db, err := sqlstore.Open(sqlstore.Config{
			Driver:          cfg.Store.Driver,
			DSN:             cfg.SQL.DSN,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		return &store{
			users:   sqlstore.NewUserRepository(db),
			coords:  sqlstore.NewCoordinatesRepository(db),
			persons: sqlstore.NewPersonRepository(db),
			tx:      sqlstore.NewTransactor(db),
			ping:    handler.PingerFunc(sqlDB.PingContext),
			close:   func(context.Context) error { return sqlDB.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.close(context.Background()) }()

	codec, err := token.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL, cfg.Auth.JWTIssuer)
	if err != nil {
		return err
	}

	hub := broadcast.NewHub(log)
	defer hub.Close()

	health := map[string]handler.Pinger{"store": st.ping}

	// Local delivery goes straight to the hub. With a broker every instance
	// publishes and relays the broker feed into its own hub.
	var target ports.Broadcaster = hub
	switch cfg.Broadcast.Driver {
	case "redis":
		rdb, err := redisdb.Connect(ctx, cfg.Redis, serviceName)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()

		target = broadcast.NewRedisPublisher(rdb, cfg.Broadcast.Channel)
		relay := broadcast.NewRedisRelay(rdb, cfg.Broadcast.Channel, hub, log)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error().Err(err).Msg("redis relay stopped")
			}
		}()
		health["redis"] = handler.PingerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	case "nats":
		nc, err := broadcast.ConnectNATS(cfg.NATS.URL, serviceName, log)
		if err != nil {
			return err
		}
		defer func() { _ = nc.Drain() }()

		target = broadcast.NewNATSPublisher(nc, cfg.Broadcast.Channel)
		relay := broadcast.NewNATSRelay(nc, cfg.Broadcast.Channel, hub, log)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error().Err(err).Msg("nats relay stopped")
			}
		}()
		health["nats"] = handler.PingerFunc(func(context.Context) error {
			if !nc.IsConnected() {
				return errors.New("nats not connected")
			}
			return nil
		})
	}

	dispatcher := queue.NewDispatcher(cfg.Broadcast.Workers, cfg.Broadcast.Buffer, target, log)
	dispatcher.Start(ctx)

	e := api.NewRouter(api.Deps{
		Log:           log,
		Resolver:      service.NewIdentityResolver(codec, st.users),
		Auth:          service.NewAuthService(st.users, codec, cfg.Auth.AllowAdminSignup, log),
		Coordinates:   service.NewCoordinatesService(st.users, st.coords, st.tx, dispatcher, log),
		Persons:       service.NewPersonService(st.coords, st.persons, st.tx, log),
		Subscribers:   hub,
		Health:        health,
		AuthRateLimit: cfg.Auth.RateLimit,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.Store.Driver).
			Str("broadcast", cfg.Broadcast.Driver).
			Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
