package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"rentwheels/internal/app/bootstrap"
	bookingapp "rentwheels/internal/app/handlers/booking"
	"rentwheels/internal/app/middleware"
	authsvc "rentwheels/internal/app/services/auth"
	"rentwheels/internal/app/uow"
	domainauth "rentwheels/internal/domain/auth"
	domaincars "rentwheels/internal/domain/cars"
	domainuser "rentwheels/internal/domain/user"
	"rentwheels/internal/infra/broker/kafka"
	"rentwheels/internal/infra/config"
	mongostore "rentwheels/internal/infra/db/mongo"
	ginserver "rentwheels/internal/infra/http/gin"
	"rentwheels/internal/infra/obs"
	infraoutbox "rentwheels/internal/infra/outbox"
	"rentwheels/internal/infra/security"
	"rentwheels/internal/infra/storage/memory"
	"rentwheels/internal/infra/storage/redisstore"
	"rentwheels/internal/infra/storage/s3"
	"rentwheels/internal/infra/validate"
)

const serviceName = "rentwheels"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	if err := loadFixtures(ctx, cfg.FixturesPath, app.auth, app.seedCars, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
	}

	go func() {
		if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox relay stopped", "error", err)
		}
	}()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Probes: app.probes}, app.handlers)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "timezone", cfg.Location.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

// storage is the persistence backend selected by STORE_DRIVER.
type storage struct {
	factory     uow.UoWFactory
	outbox      infraoutbox.Store
	idempotency middleware.IdempotencyStore
	users       domainuser.Repository
	sessions    domainauth.SessionStore
	seedCars    func(ctx context.Context, cars []*domaincars.Car) error
	retryable   func(err error) bool
	ping        obs.Probe
	close       func(ctx context.Context) error
}

type application struct {
	handlers ginserver.Handlers
	worker   *infraoutbox.Worker
	auth     *authsvc.Service
	seedCars func(ctx context.Context, cars []*domaincars.Car) error
	probes   map[string]obs.Probe
	closers  []func(ctx context.Context) error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{probes: map[string]obs.Probe{}}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.seedCars = store.seedCars
	app.probes["store"] = store.ping
	if store.close != nil {
		app.closers = append(app.closers, store.close)
	}

	if cfg.RedisEnabled() {
		client := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		store.idempotency = redisstore.NewIdempotencyStore(client, cfg.IdempotencyTTL)
		store.sessions = redisstore.NewSessionStore(client)
		app.probes["redis"] = redisstore.Ping(client)
		app.closers = append(app.closers, closeRedis(client))
		logger.Info("redis enabled", "addr", cfg.RedisAddr)
	}

	var producer infraoutbox.Producer = infraoutbox.LogProducer{Logger: logger}
	if cfg.KafkaEnabled() {
		kp, err := kafka.NewProducer(cfg.KafkaBrokers, serviceName)
		if err != nil {
			return nil, err
		}
		producer = kp
		app.closers = append(app.closers, func(context.Context) error { return kp.Close() })
		logger.Info("kafka enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	app.worker = &infraoutbox.Worker{
		Store:     store.outbox,
		Producer:  producer,
		Topic:     cfg.KafkaTopic,
		Interval:  cfg.OutboxPollInterval,
		BatchSize: cfg.OutboxBatchSize,
		Source:    serviceName,
		Backoff:   cfg.RetryBackoff,
		Logger:    logger,
	}

	var photos bookingapp.PhotoStore = s3.Disabled{}
	if cfg.S3Enabled() {
		client, err := s3.NewClient(s3.Options{
			Endpoint:      cfg.S3Endpoint,
			UseSSL:        cfg.S3UseSSL,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicEndpoint,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		photos = client
		app.probes["object_storage"] = client.Ready
	}

	app.auth = &authsvc.Service{
		Users:      store.users,
		Sessions:   store.sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	buses := bootstrap.Build(bootstrap.Deps{
		UoWFactory:    store.factory,
		Validator:     validate.New(),
		Idempotency:   store.idempotency,
		Flusher:       app.worker,
		Photos:        photos,
		Location:      cfg.Location,
		Retryable:     store.retryable,
		TxMaxAttempts: cfg.TxMaxAttempts,
		Logger:        logger,
	})

	app.handlers = ginserver.Handlers{
		Auth:           ginserver.AuthHandler{Service: app.auth, Logger: logger},
		Cars:           ginserver.CarHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Bookings:       ginserver.BookingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		OwnerBookings:  ginserver.OwnerBookingHandler{Queries: buses.Queries, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: app.auth, Logger: logger}.Handle,
	}
	return app, nil
}

func openStorage(ctx context.Context, cfg config.Config) (storage, error) {
	if cfg.StoreDriver == config.StoreMongo {
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storage{}, err
		}
		if err := client.EnsureIndexes(ctx, cfg.IdempotencyTTL); err != nil {
			return storage{}, err
		}
		cars := mongostore.NewCarRepository(client.DB)
		return storage{
			factory:     mongostore.Factory{DB: client.DB},
			outbox:      mongostore.NewOutboxStore(client.DB),
			idempotency: mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL),
			users:       mongostore.NewUserRepository(client.DB),
			sessions:    memory.NewSessionStore(),
			seedCars:    cars.Seed,
			retryable:   mongostore.RetryableTxnError,
			ping:        client.Ping,
			close:       client.Close,
		}, nil
	}

	store := memory.NewStore()
	return storage{
		factory:     memory.Factory{Store: store},
		outbox:      memory.OutboxStore{Store: store},
		idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
		users:       memory.NewUserRepository(),
		sessions:    memory.NewSessionStore(),
		seedCars: func(_ context.Context, cars []*domaincars.Car) error {
			for _, car := range cars {
				store.SeedCar(car)
			}
			return nil
		},
		retryable: memory.RetryableCommitError,
		ping:      store.Ping,
	}, nil
}

func closeRedis(client *redis.Client) func(context.Context) error {
	return func(context.Context) error { return client.Close() }
}

func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}
