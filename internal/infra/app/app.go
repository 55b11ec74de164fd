package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/stridetech/mcm-service/internal/core/port"
	"github.com/stridetech/mcm-service/internal/infra/config"
	"github.com/stridetech/mcm-service/internal/infra/database"
	kafkainfra "github.com/stridetech/mcm-service/internal/infra/kafka"
	"github.com/stridetech/mcm-service/internal/infra/logger"
	postgresrepo "github.com/stridetech/mcm-service/internal/repository/postgres"
	"github.com/stridetech/mcm-service/internal/usecase"
)

// ServiceSet groups the usecase services the application exposes to
// embedding callers.
type ServiceSet struct {
	BusinessUnits *usecase.BusinessUnitService
	Marketplaces  *usecase.MarketplaceService
	Products      *usecase.ProductService
	Campaigns     *usecase.CampaignService
	Tags          *usecase.TagService
}

// Application wires configuration, storage, the event publisher and the
// usecase services into one composition root.
type Application struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	pool     *pgxpool.Pool
	producer *kafkainfra.Producer
	services ServiceSet
}

// New assembles the application: postgres pool, repositories, event
// publisher (Kafka when enabled, stub otherwise) and services.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var (
		eventPublisher port.EventPublisher
		producer       *kafkainfra.Producer
	)
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka disabled, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	services := ServiceSet{
		BusinessUnits: usecase.NewBusinessUnitService(repos.BusinessUnits, repos.Changelogs, eventPublisher, log),
		Marketplaces:  usecase.NewMarketplaceService(repos.Marketplaces, repos.Changelogs, eventPublisher, log),
		Products:      usecase.NewProductService(repos.Products, repos.Changelogs, eventPublisher, log),
		Campaigns:     usecase.NewCampaignService(repos.Campaigns, repos.Changelogs, eventPublisher, log),
		Tags:          usecase.NewTagService(repos.Tags),
	}

	return &Application{
		cfg:      cfg,
		logger:   log,
		pool:     pool,
		producer: producer,
		services: services,
	}, nil
}

// Services returns the wired usecase services.
func (a *Application) Services() ServiceSet {
	return a.services
}

// Logger returns the application logger.
func (a *Application) Logger() *zap.Logger {
	return a.logger
}

// Run blocks until the context is cancelled, then releases the producer and
// the pool.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Error("close kafka producer", zap.Error(err))
			}
		}
	}()

	a.logger.Info("campaign metadata service ready",
		zap.String("env", a.cfg.App.Env),
		zap.Bool("kafka", a.producer != nil),
	)

	<-ctx.Done()
	a.logger.Info("shutting down")
	return nil
}
