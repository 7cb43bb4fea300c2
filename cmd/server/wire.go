package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"etatcivil/internal/blob"
	certificatehandler "etatcivil/internal/certificate/handler"
	certificatemetrics "etatcivil/internal/certificate/metrics"
	certificateservice "etatcivil/internal/certificate/service"
	certificatestore "etatcivil/internal/certificate/store"
	declarationhandler "etatcivil/internal/declaration/handler"
	declarationmetrics "etatcivil/internal/declaration/metrics"
	declarationservice "etatcivil/internal/declaration/service"
	declarationstore "etatcivil/internal/declaration/store"
	"etatcivil/internal/directory"
	jwttoken "etatcivil/internal/jwt_token"
	notificationhandler "etatcivil/internal/notification/handler"
	notificationmetrics "etatcivil/internal/notification/metrics"
	notificationservice "etatcivil/internal/notification/service"
	notificationstore "etatcivil/internal/notification/store"
	"etatcivil/internal/payment"
	"etatcivil/internal/platform/config"
	"etatcivil/internal/platform/database"
	"etatcivil/internal/platform/health"
	"etatcivil/internal/platform/kafka"
	"etatcivil/internal/platform/kafka/producer"
	"etatcivil/internal/platform/redis"
	"etatcivil/internal/seeder"
	"etatcivil/internal/sequence"
	httptransport "etatcivil/internal/transport/http"
	"etatcivil/pkg/platform/circuit"
	"etatcivil/pkg/platform/middleware/request"
	"etatcivil/pkg/platform/outbox"
	outboxmetrics "etatcivil/pkg/platform/outbox/metrics"
	outboxmemory "etatcivil/pkg/platform/outbox/store/memory"
	outboxpostgres "etatcivil/pkg/platform/outbox/store/postgres"
	"etatcivil/pkg/platform/outbox/worker"
	platformsync "etatcivil/pkg/platform/sync"
)

// publisher is the producer surface main needs beyond worker.Publisher.
type publisher interface {
	worker.Publisher
	Close() error
}

// application holds everything main starts and stops.
type application struct {
	router   http.Handler
	outbox   *worker.Worker
	producer publisher
	pool     *database.Pool
	redis    *redis.Client
}

// storage is the persistence layer picked from configuration.
type storage struct {
	declarations  declarationservice.Store
	certificates  certificateservice.Store
	notifications notificationservice.Store
	directory     directory.Directory
	outbox        outbox.Store
	declarationTx declarationservice.StoreTx
	certificateTx certificateservice.StoreTx
}

func wire(ctx context.Context, cfg config.Server, log *slog.Logger, reg *prometheus.Registry) (*application, error) {
	app := &application{}
	checks := health.New(cfg.Environment)

	pool, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	app.pool = pool
	if pool != nil {
		checks.RegisterCheck("postgres", pool.Health)
	}

	rdb, err := redis.New(ctx, cfg.Redis, redis.NewPoolMetrics(reg))
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	app.redis = rdb
	var redisClient *goredis.Client
	if rdb != nil {
		redisClient = rdb.Client
		checks.RegisterCheck("redis", rdb.Health)
	}

	declarationMetrics := declarationmetrics.New(reg)
	st := newStorage(pool, redisClient, declarationMetrics, log)
	checks.SetBackend("storage", backendName(pool != nil, "postgres", "memory"))
	checks.SetBackend("sequence", sequenceBackend(pool != nil, redisClient != nil))
	checks.SetBackend("payments", backendName(redisClient != nil, "redis", "memory"))
	checks.SetBackend("documents", backendName(cfg.S3.Bucket != "", "s3", "memory"))
	checks.SetBackend("events", backendName(cfg.Kafka.Brokers != "", "kafka", "noop"))

	documents, err := newDocumentStore(ctx, cfg.S3, log)
	if err != nil {
		return nil, fmt.Errorf("blob store: %w", err)
	}

	var ledger certificateservice.PaymentLedger = payment.NewMemoryLedger()
	if redisClient != nil {
		ledger = payment.NewRedisLedger(redisClient)
	}

	notifications := notificationservice.New(
		st.notifications,
		st.directory,
		notificationservice.NewAudienceResolver(st.directory),
		notificationservice.WithMetrics(notificationmetrics.New(reg)),
		notificationservice.WithLogger(log),
	)
	declarations := declarationservice.New(
		st.declarations,
		st.declarationTx,
		st.directory,
		notifications,
		declarationservice.WithMetrics(declarationMetrics),
		declarationservice.WithLogger(log),
	)
	certificates := certificateservice.New(
		st.certificates,
		st.declarations,
		st.certificateTx,
		st.directory,
		documents,
		ledger,
		notifications,
		certificateservice.WithUnitPrice(cfg.UnitPrice),
		certificateservice.WithMetrics(certificatemetrics.New(reg)),
		certificateservice.WithLogger(log),
	)

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(kafka.ProducerConfig(cfg.Kafka), log)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.producer = p
		checks.RegisterCheck("kafka", kafka.HealthCheck(p))
	} else {
		app.producer = producer.NewNoopProducer(log)
	}
	app.outbox = worker.New(st.outbox, app.producer,
		worker.WithTopic(cfg.Kafka.Topic),
		worker.WithPollInterval(cfg.Kafka.OutboxPollInterval),
		worker.WithRetention(cfg.Kafka.OutboxRetention),
		worker.WithMetrics(outboxmetrics.New(reg)),
		worker.WithLogger(log),
	)

	// the server only validates; cmd/tokengen signs
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, 0)
	app.router = httptransport.NewRouter(httptransport.Deps{
		Declarations:   declarationhandler.New(declarations, log),
		Certificates:   certificatehandler.New(certificates, log),
		Notifications:  notificationhandler.New(notifications, log),
		Health:         checks,
		Tokens:         jwttoken.NewJWTServiceAdapter(tokens),
		CallbackSecret: cfg.PaymentCallbackSecret,
		Gatherer:       reg,
		LatencyMetrics: request.NewMetrics(reg),
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log,
	})
	if cfg.PaymentCallbackSecret == "" {
		log.Warn("PAYMENT_CALLBACK_SECRET unset; payment callback route disabled")
	}
	return app, nil
}

// newStorage picks Postgres when a pool exists and in-memory stores
// otherwise. A Redis client, when present, takes over sequence allocation.
func newStorage(pool *database.Pool, rdb *goredis.Client, m *declarationmetrics.Metrics, log *slog.Logger) storage {
	var counter sequence.Allocator
	if rdb != nil {
		counter = sequence.NewRedisAllocator(rdb)
	}

	if pool != nil {
		db := pool.DB()
		return postgresStorage(db, counter)
	}

	log.Warn("DATABASE_URL unset; using in-memory stores with demo directory")
	dir := directory.NewMemory()
	seeder.New(dir, log).SeedAll()

	declarations := declarationstore.NewInMemory()
	certificates := certificatestore.NewInMemory()
	outboxStore := outboxmemory.New()
	if counter == nil {
		counter = sequence.NewMemoryAllocator()
	}

	// one mutex so issuance and workflow transitions on a declaration serialize
	mu := platformsync.NewShardedMutex()
	return storage{
		declarations:  declarations,
		certificates:  certificates,
		notifications: notificationstore.NewInMemory(),
		directory:     dir,
		outbox:        outboxStore,
		declarationTx: declarationservice.NewShardedTx(mu, declarationservice.Stores{
			Declarations: declarations,
			Outbox:       outboxStore,
		}, m),
		certificateTx: certificateservice.NewShardedTx(mu, certificateservice.Stores{
			Certificates: certificates,
			Declarations: declarations,
			Sequence:     counter,
			Outbox:       outboxStore,
		}),
	}
}

func postgresStorage(db *sql.DB, counter sequence.Allocator) storage {
	outboxStore := outboxpostgres.New(db)
	return storage{
		declarations:  declarationstore.NewPostgres(db),
		certificates:  certificatestore.NewPostgres(db),
		notifications: notificationstore.NewPostgres(db),
		directory:     directory.NewPostgres(db),
		outbox:        outboxStore,
		declarationTx: newDeclarationPostgresTx(db, outboxStore),
		certificateTx: newCertificatePostgresTx(db, outboxStore, counter),
	}
}

// newDocumentStore wraps S3 or the in-memory store in a circuit breaker.
func newDocumentStore(ctx context.Context, cfg config.S3Config, log *slog.Logger) (*blob.GuardedStore, error) {
	var inner blob.Store = blob.NewMemoryStore()
	if cfg.Bucket != "" {
		s3, err := blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			Bucket:    cfg.Bucket,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		inner = s3
	} else {
		log.Warn("S3_BUCKET unset; certificate documents kept in memory")
	}

	breaker := circuit.New("blob",
		circuit.WithStateChange(func(name string, from, to circuit.State) {
			log.Warn("circuit state changed", "circuit", name, "from", from, "to", to)
		}),
	)
	return blob.NewGuardedStore(inner, breaker), nil
}

func backendName(enabled bool, on, off string) string {
	if enabled {
		return on
	}
	return off
}

func sequenceBackend(hasPostgres, hasRedis bool) string {
	switch {
	case hasRedis:
		return "redis"
	case hasPostgres:
		return "postgres"
	default:
		return "memory"
	}
}
