// main.go
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"charger-booking/cmd"
	"charger-booking/internal/data/repository"
	"charger-booking/internal/usecase"
	"charger-booking/internal/wire"
	"charger-booking/pkg/cache"
	"charger-booking/pkg/database"
	"charger-booking/pkg/mq"
	"charger-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("db_driver", config.Database.Driver),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to storage
	repos, closeStore, err := openRepository(config, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer closeStore()

	// Optional collaborators
	deps := usecase.BookingDeps{
		Cache:  openCache(config.Redis, logger),
		Events: openPublisher(config.Events, logger),
	}
	defer closeQuietly(logger, "calendar cache", deps.Cache)
	defer closeQuietly(logger, "event publisher", deps.Events)

	// Wire all dependencies
	app := wire.Wiring(repos, config, deps, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
}

// openRepository picks the storage driver named by DB_DRIVER.
func openRepository(config *utils.Config, logger *zap.Logger) (*repository.Repository, func(), error) {
	switch config.Database.Driver {
	case utils.DriverPostgres:
		db, err := database.InitDB(config.Database)
		if err != nil {
			return nil, nil, err
		}
		if config.Database.AutoMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := database.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Info("Database schema migrated")
		}
		logger.Info("Database connected successfully")
		return repository.NewRepository(db, logger), db.Close, nil

	case utils.DriverMongo:
		db, err := database.InitMongo(config.Mongo)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			_ = db.Client().Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		logger.Info("MongoDB connected successfully", zap.String("database", config.Mongo.Database))
		closeFn := func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				logger.Warn("MongoDB disconnect failed", zap.Error(err))
			}
		}
		return repository.NewMongoRepository(db, logger), closeFn, nil

	case utils.DriverMemory:
		logger.Warn("Using in-memory storage, bookings are lost on restart")
		return repository.NewMemoryRepository(logger), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown DB_DRIVER %q", config.Database.Driver)
	}
}

// closeQuietly logs instead of failing so shutdown reaches every collaborator.
func closeQuietly(logger *zap.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("Failed to close "+name, zap.Error(err))
	}
}

// openCache returns a no-op cache when Redis is not configured or unreachable.
func openCache(config utils.RedisConfig, logger *zap.Logger) cache.Store {
	if config.Addr == "" {
		return cache.Noop{}
	}

	store, err := cache.NewRedisStore(config.Addr, config.Password, config.DB)
	if err != nil {
		logger.Warn("Calendar cache disabled", zap.Error(err))
		return cache.Noop{}
	}
	logger.Info("Calendar cache connected", zap.String("addr", config.Addr))
	return store
}

// openPublisher returns a no-op publisher when AMQP is not configured or unreachable.
func openPublisher(config utils.EventsConfig, logger *zap.Logger) mq.Publisher {
	if config.AMQPURL == "" {
		return mq.Noop{}
	}

	publisher, err := mq.NewAMQPPublisher(config.AMQPURL, config.Exchange)
	if err != nil {
		logger.Warn("Booking events disabled", zap.Error(err))
		return mq.Noop{}
	}
	logger.Info("Booking events enabled", zap.String("exchange", config.Exchange))
	return publisher
}
