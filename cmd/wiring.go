package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vibast-solutions/ms-go-website/app/delivery"
	"github.com/vibast-solutions/ms-go-website/app/lock"
	"github.com/vibast-solutions/ms-go-website/app/preparer"
	"github.com/vibast-solutions/ms-go-website/app/profile"
	"github.com/vibast-solutions/ms-go-website/app/provider"
	"github.com/vibast-solutions/ms-go-website/app/queue"
	"github.com/vibast-solutions/ms-go-website/app/repository"
	"github.com/vibast-solutions/ms-go-website/app/service"
	"github.com/vibast-solutions/ms-go-website/config"
)

const connectTimeout = 10 * time.Second

// services holds the shared dependencies of every command.
type services struct {
	cfg          *config.Config
	registry     *profile.Registry
	factory      *provider.Factory
	records      *repository.RecordStore
	history      *repository.EmailHistoryRepository
	submissions  *repository.SubmissionRepository
	orchestrator *delivery.Orchestrator
	email        *service.EmailService

	db    *sql.DB
	rdb   *redis.Client
	mongo *mongo.Client
}

// setupLogger applies LOG_LEVEL and LOG_FORMAT to the global logger.
func setupLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// buildServices connects the optional stores and assembles the delivery pipeline.
func buildServices(ctx context.Context, cfg *config.Config) (*services, error) {
	registry, err := profile.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build transport registry: %w", err)
	}

	s := &services{
		cfg:      cfg,
		registry: registry,
		records:  repository.NewRecordStore(cfg.RecordCapacity),
		factory: provider.NewFactory(provider.FactoryOptions{
			Timeout:    cfg.SMTPTimeout,
			HeloName:   cfg.SMTPHeloName,
			Production: cfg.IsProduction(),
		}),
	}

	if err := s.connect(ctx); err != nil {
		s.Close()
		return nil, err
	}

	opts := []delivery.Option{
		delivery.WithPolicy(delivery.RetryPolicy{
			MaxRetries: cfg.RetryMax,
			BaseDelay:  cfg.RetryBaseDelay,
			Factor:     cfg.RetryFactor,
		}),
		delivery.WithDeadline(cfg.DeliveryDeadline),
	}
	if s.history != nil {
		opts = append(opts, delivery.WithSink(s.history))
	}
	s.orchestrator = delivery.NewOrchestrator(registry, s.factory, delivery.NewExecutor(cfg.SMTPTimeout), s.records, opts...)

	steps := []preparer.Step{
		preparer.NewDefaultsPreparer(cfg.SenderAddress()),
		preparer.NewRawPreparer(),
	}
	signer, err := preparer.NewDKIMSigner(cfg.DKIMSelector, cfg.DKIMDomain, cfg.DKIMKeyPath, cfg.DKIMPrivateKey)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load dkim key: %w", err)
	}
	if signer != nil {
		steps = append(steps, signer)
	}

	s.email = service.NewEmailService(preparer.NewChain(steps...), s.orchestrator, s.locker())

	log.WithFields(log.Fields{
		"transports": registry.Names(),
		"mysql":      s.db != nil,
		"redis":      s.rdb != nil,
		"mongodb":    s.mongo != nil,
		"dkim":       signer != nil,
	}).Info("delivery pipeline ready")
	return s, nil
}

func (s *services) connect(ctx context.Context) error {
	cfg := s.cfg

	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return fmt.Errorf("open mysql: %w", err)
		}
		s.db = db
		db.SetMaxOpenConns(cfg.MySQLMaxOpen)
		db.SetMaxIdleConns(cfg.MySQLMaxIdle)
		db.SetConnMaxLifetime(cfg.MySQLMaxLife)

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return fmt.Errorf("ping mysql: %w", err)
		}

		s.history = repository.NewEmailHistoryRepository(db)
		if err := s.history.Migrate(pingCtx); err != nil {
			return fmt.Errorf("migrate email history: %w", err)
		}
	}

	if cfg.RedisAddr != "" {
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}

	if cfg.MongoURI != "" {
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("connect mongodb: %w", err)
		}
		s.mongo = client

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			return fmt.Errorf("ping mongodb: %w", err)
		}
		s.submissions = repository.NewSubmissionRepository(client.Database(cfg.MongoDatabase))
	}
	return nil
}

// locker prefers Redis, then MySQL advisory locks, then a process-local lock.
func (s *services) locker() lock.Locker {
	switch {
	case s.rdb != nil:
		return lock.NewRedisLocker(s.rdb)
	case s.db != nil:
		return lock.NewMySQLLocker(s.db)
	}
	return lock.NewMemoryLocker()
}

// dispatcher returns the dispatcher for DELIVERY_MODE.
func (s *services) dispatcher() (service.Dispatcher, error) {
	switch s.cfg.DeliveryMode {
	case config.DeliveryModeDirect, "":
		return service.NewDirectDispatcher(s.email), nil
	case config.DeliveryModeQueue:
		if s.rdb == nil {
			return nil, fmt.Errorf("DELIVERY_MODE=queue requires REDIS_ADDR")
		}
		return service.NewQueueDispatcher(queue.NewEmailProducer(s.rdb)), nil
	}
	return nil, fmt.Errorf("unsupported DELIVERY_MODE: %s", s.cfg.DeliveryMode)
}

// formStore returns the submission store, or nil when MongoDB is not configured.
func (s *services) formStore() service.SubmissionStore {
	if s.submissions == nil {
		return nil
	}
	return s.submissions
}

// Close releases transport handles and store connections.
func (s *services) Close() {
	if err := s.factory.Close(); err != nil {
		log.Warnf("close transports: %v", err)
	}
	if s.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := s.mongo.Disconnect(ctx); err != nil {
			log.Warnf("disconnect mongodb: %v", err)
		}
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
