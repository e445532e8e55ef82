// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	catalogRepository "github.com/allisson/catalog/internal/catalog/repository"
	catalogUsecase "github.com/allisson/catalog/internal/catalog/usecase"
	"github.com/allisson/catalog/internal/config"
	"github.com/allisson/catalog/internal/database"
	"github.com/allisson/catalog/internal/eventbus"
	"github.com/allisson/catalog/internal/http"
	"github.com/allisson/catalog/internal/metrics"
	outboxRepository "github.com/allisson/catalog/internal/outbox/repository"
	outboxUsecase "github.com/allisson/catalog/internal/outbox/usecase"
)

// outboxEventRepository combines the write-side append used by the aggregate
// repositories with the processing operations used by the outbox processor.
// Both driver implementations satisfy it.
type outboxEventRepository interface {
	catalogRepository.OutboxEventAppender
	outboxUsecase.OutboxEventRepository
}

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider

	// Managers
	txManager database.TxManager

	// Repositories
	outboxRepo  outboxEventRepository
	productRepo catalogUsecase.ProductRepository

	// Event bus
	eventBus eventbus.EventBus

	// Use Cases
	productUseCase  catalogUsecase.ProductUseCase
	outboxProcessor *outboxUsecase.Processor

	// Servers
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	metricsProviderInit sync.Once
	txManagerInit       sync.Once
	outboxRepoInit      sync.Once
	productRepoInit     sync.Once
	eventBusInit        sync.Once
	productUseCaseInit  sync.Once
	outboxProcessorInit sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// OutboxRepository returns the outbox event repository instance.
func (c *Container) OutboxRepository() (outboxUsecase.OutboxEventRepository, error) {
	if err := c.ensureOutboxRepository(); err != nil {
		return nil, err
	}
	return c.outboxRepo, nil
}

// ProductRepository returns the product repository instance.
func (c *Container) ProductRepository() (catalogUsecase.ProductRepository, error) {
	c.productRepoInit.Do(func() {
		repo, err := c.initProductRepository()
		if err != nil {
			c.initErrors["productRepo"] = err
			return
		}
		c.productRepo = repo
	})
	if storedErr, exists := c.initErrors["productRepo"]; exists {
		return nil, storedErr
	}
	return c.productRepo, nil
}

// EventBus returns the event bus selected by the configured driver.
func (c *Container) EventBus() (eventbus.EventBus, error) {
	c.eventBusInit.Do(func() {
		bus, err := c.initEventBus()
		if err != nil {
			c.initErrors["eventBus"] = err
			return
		}
		c.eventBus = bus
	})
	if storedErr, exists := c.initErrors["eventBus"]; exists {
		return nil, storedErr
	}
	return c.eventBus, nil
}

// ProductUseCase returns the product use case instance.
func (c *Container) ProductUseCase() (catalogUsecase.ProductUseCase, error) {
	c.productUseCaseInit.Do(func() {
		useCase, err := c.initProductUseCase()
		if err != nil {
			c.initErrors["productUseCase"] = err
			return
		}
		c.productUseCase = useCase
	})
	if storedErr, exists := c.initErrors["productUseCase"]; exists {
		return nil, storedErr
	}
	return c.productUseCase, nil
}

// OutboxProcessor returns the outbox processor instance.
func (c *Container) OutboxProcessor() (*outboxUsecase.Processor, error) {
	c.outboxProcessorInit.Do(func() {
		processor, err := c.initOutboxProcessor()
		if err != nil {
			c.initErrors["outboxProcessor"] = err
			return
		}
		c.outboxProcessor = processor
	})
	if storedErr, exists := c.initErrors["outboxProcessor"]; exists {
		return nil, storedErr
	}
	return c.outboxProcessor, nil
}

// MetricsServer returns the metrics HTTP server instance.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		server, err := c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		c.metricsServer = server
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.eventBus != nil {
		if err := c.eventBus.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("event bus close: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// ensureOutboxRepository initializes the outbox repository on first use.
func (c *Container) ensureOutboxRepository() error {
	c.outboxRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["outboxRepo"] = fmt.Errorf("failed to get database for outbox repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.outboxRepo = outboxRepository.NewMySQLOutboxEventRepository(db)
		case "postgres":
			c.outboxRepo = outboxRepository.NewPostgreSQLOutboxEventRepository(db)
		default:
			c.initErrors["outboxRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return storedErr
	}
	return nil
}

// initProductRepository creates the product repository instance.
func (c *Container) initProductRepository() (catalogUsecase.ProductRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for product repository: %w", err)
	}

	if err := c.ensureOutboxRepository(); err != nil {
		return nil, err
	}

	switch c.config.DBDriver {
	case "mysql":
		return catalogRepository.NewMySQLProductRepository(db, c.outboxRepo), nil
	case "postgres":
		return catalogRepository.NewPostgreSQLProductRepository(db, c.outboxRepo), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initEventBus creates the event bus selected by the configured driver.
func (c *Container) initEventBus() (eventbus.EventBus, error) {
	logger := c.Logger()

	switch c.config.EventBusDriver {
	case "memory":
		return eventbus.NewMemoryEventBus(logger), nil
	case "kafka":
		return eventbus.NewKafkaEventBus(c.config.KafkaBrokers, c.config.KafkaTopic, logger), nil
	case "nats":
		return eventbus.NewNATSEventBus(
			c.config.NATSURL,
			c.config.NATSStream,
			c.config.NATSSubjectPrefix,
			logger,
		)
	default:
		return nil, fmt.Errorf("unsupported event bus driver: %s", c.config.EventBusDriver)
	}
}

// initProductUseCase creates the product use case with all its dependencies.
func (c *Container) initProductUseCase() (catalogUsecase.ProductUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for product use case: %w", err)
	}

	productRepo, err := c.ProductRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get product repository for product use case: %w", err)
	}

	useCase := catalogUsecase.NewProductUseCase(txManager, productRepo, c.Logger())

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return useCase, nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	return catalogUsecase.NewProductUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initOutboxProcessor creates the outbox processor with all its dependencies.
func (c *Container) initOutboxProcessor() (*outboxUsecase.Processor, error) {
	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox processor: %w", err)
	}

	bus, err := c.EventBus()
	if err != nil {
		return nil, fmt.Errorf("failed to get event bus for outbox processor: %w", err)
	}

	outboxMetrics := metrics.NewNoOpOutboxMetrics()
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider != nil {
		outboxMetrics, err = metrics.NewOutboxMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox metrics: %w", err)
		}
	}

	processorConfig := outboxUsecase.Config{
		PollInterval:      c.config.OutboxPollInterval,
		BatchSize:         c.config.OutboxBatchSize,
		MaxRetries:        c.config.OutboxMaxRetries,
		CleanupInterval:   c.config.OutboxCleanupInterval,
		RetentionPeriod:   c.config.OutboxRetentionPeriod,
		PublishRatePerSec: c.config.OutboxPublishRatePerSec,
	}

	return outboxUsecase.NewProcessor(processorConfig, outboxRepo, bus, outboxMetrics, c.Logger()), nil
}

// initMetricsServer creates the metrics HTTP server with all its dependencies.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for metrics server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}

	return http.NewMetricsServer(
		c.config.MetricsHost,
		c.config.MetricsPort,
		db,
		c.Logger(),
		provider,
	), nil
}
