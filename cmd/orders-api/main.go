package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/matheusmosca/order-inventory-core/internal/analytics"
	"github.com/matheusmosca/order-inventory-core/internal/cart"
	"github.com/matheusmosca/order-inventory-core/internal/catalog"
	"github.com/matheusmosca/order-inventory-core/internal/checkout"
	"github.com/matheusmosca/order-inventory-core/internal/config"
	"github.com/matheusmosca/order-inventory-core/internal/events"
	"github.com/matheusmosca/order-inventory-core/internal/httpapi"
	"github.com/matheusmosca/order-inventory-core/internal/inventory"
	"github.com/matheusmosca/order-inventory-core/internal/lifecycle"
	"github.com/matheusmosca/order-inventory-core/internal/observability"
	"github.com/matheusmosca/order-inventory-core/internal/orders"
	"github.com/matheusmosca/order-inventory-core/internal/storage"
	"github.com/matheusmosca/order-inventory-core/internal/storage/memory"
	"github.com/matheusmosca/order-inventory-core/internal/storage/postgres"
)

// backend is one storage driver's stores plus its cleanup.
type backend struct {
	catalog    catalog.Store
	orders     orders.Store
	transactor storage.Transactor
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	shutdownTelemetry, err := observability.Setup(ctx, observability.Options{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTelEndpoint,
		Enabled:     cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	logger := observability.NewLogger(cfg.ServiceName)
	defer logger.Sync()

	tracer := otel.Tracer(cfg.ServiceName)
	meter := otel.Meter(cfg.ServiceName)

	// Initialize storage
	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.close()

	// Initialize cart store
	rdb, closeRedis, err := openRedis(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer closeRedis()

	// Initialize order events
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		logger.Info("Publishing order events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaOrderTopic))
	}
	defer publisher.Close()
	notifier := events.NewNotifier(publisher, logger)

	// Initialize dependencies
	ledger, err := inventory.NewLedger(store.catalog, store.transactor, logger, tracer, meter)
	if err != nil {
		logger.Fatal("Failed to create ledger", zap.Error(err))
	}
	machine, err := lifecycle.NewMachine(store.orders, ledger, store.transactor, notifier, logger, tracer, meter)
	if err != nil {
		logger.Fatal("Failed to create lifecycle", zap.Error(err))
	}
	service, err := checkout.NewService(ledger, store.orders, store.transactor,
		orders.NewIDGenerator(cfg.Location),
		checkout.Config{Pricing: cfg.Pricing, PickupLocations: cfg.PickupLocations},
		notifier, logger, tracer, meter)
	if err != nil {
		logger.Fatal("Failed to create checkout", zap.Error(err))
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Catalog:   store.catalog,
		Restocker: ledger,
		Checkout:  service,
		Orders:    store.orders,
		Lifecycle: machine,
		Reports:   analytics.NewEngine(store.orders, tracer),
		Carts:     cart.NewStore(rdb, store.catalog, cfg.CartTTL, logger),
	}, cfg.ServiceName, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		logger.Info("Orders API listening", zap.String("port", cfg.Port), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down server", zap.Error(err))
	}
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	if cfg.StorageDriver == config.DriverMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		db := memory.NewDB()
		return &backend{
			catalog:    memory.NewCatalog(db),
			orders:     memory.NewOrders(db),
			transactor: db,
			close:      func() {},
		}, nil
	}

	dsn := cfg.Database.DSN()
	db, err := postgres.Connect(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(dsn); err != nil {
		db.Close()
		return nil, err
	}
	return &backend{
		catalog:    catalog.NewPostgresStore(db.Pool),
		orders:     orders.NewPostgresStore(db.Pool),
		transactor: db,
		close:      db.Close,
	}, nil
}

// openRedis connects to REDIS_ADDR, or starts an embedded server when it is
// unset so carts work without external infrastructure.
func openRedis(cfg *config.Config, logger *zap.Logger) (*redis.Client, func(), error) {
	addr := cfg.RedisAddr
	var embedded *miniredis.Miniredis
	if addr == "" {
		var err error
		embedded, err = miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		addr = embedded.Addr()
		logger.Warn("REDIS_ADDR not set, carts use an embedded redis", zap.String("addr", addr))
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return rdb, func() {
		rdb.Close()
		if embedded != nil {
			embedded.Close()
		}
	}, nil
}
