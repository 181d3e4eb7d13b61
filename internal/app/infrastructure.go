// Package app opens the stores and publishers selected by configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/firestore"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/georgemunganga/supply-backend/internal/config"
	"github.com/georgemunganga/supply-backend/internal/modules/catalog"
	"github.com/georgemunganga/supply-backend/internal/modules/events"
	"github.com/georgemunganga/supply-backend/internal/modules/order"
)

// Infrastructure holds the long-lived resources of a process.
type Infrastructure struct {
	Products  catalog.Repository
	Orders    order.Repository
	Publisher events.Publisher

	closers []func() error
	logger  *zap.Logger
}

// NewInfrastructure opens the store named by cfg.StoreDriver and the event
// publisher. Call Close when done.
func NewInfrastructure(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{logger: logger}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		infra.closers = append(infra.closers, db.Close)
		infra.Products = catalog.NewPostgresRepository(db)
		infra.Orders = order.NewPostgresRepository(db)

	case config.DriverFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, fmt.Errorf("open firestore: %w", err)
		}
		infra.closers = append(infra.closers, client.Close)
		infra.Products = catalog.NewFirestoreRepository(client)
		infra.Orders = order.NewFirestoreRepository(client)

	default:
		logger.Warn("using in-memory stores; data is lost on exit")
		infra.Products = catalog.NewMemoryRepository()
		infra.Orders = order.NewMemoryRepository()
	}
	logger.Info("stores ready", zap.String("driver", cfg.StoreDriver))

	if len(cfg.KafkaBrokers) > 0 {
		pub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.Publisher = pub
		infra.closers = append(infra.closers, pub.Close)
		logger.Info("kafka publisher ready", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	} else {
		infra.Publisher = events.NewNopPublisher()
	}
	return infra, nil
}

// Close releases every resource in reverse opening order.
func (infra *Infrastructure) Close() {
	for i := len(infra.closers) - 1; i >= 0; i-- {
		if err := infra.closers[i](); err != nil {
			infra.logger.Warn("close error", zap.Error(err))
		}
	}
	infra.closers = nil
}
