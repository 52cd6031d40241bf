// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/storage/postgres"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DefaultPickupLocations are the markets and temples orders can be collected at.
var DefaultPickupLocations = []string{
	"南門市場",
	"東門市場",
	"迪化街市場",
	"建成市場",
	"中山市場",
	"松山市場",
	"龍山寺",
	"行天宮",
	"保安宮",
	"松山慈祐宮",
}

// Config holds every setting of the orders service.
type Config struct {
	Port          string
	ServiceName   string
	StorageDriver string
	Database      postgres.Config

	// RedisAddr empty runs an embedded, non-durable cart store.
	RedisAddr string
	CartTTL   time.Duration

	// KafkaBrokers empty disables order events.
	KafkaBrokers    []string
	KafkaOrderTopic string

	OTelEnabled  bool
	OTelEndpoint string

	Pricing         domain.ShippingPolicy
	PickupLocations []string
	Location        *time.Location
}

// Load reads the environment. Malformed values fail with the variable name.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		ServiceName:   getEnv("SERVICE_NAME", "orders-api"),
		StorageDriver: getEnv("STORAGE_DRIVER", DriverPostgres),
		Database: postgres.Config{
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnv("DATABASE_PORT", "5432"),
			User:     getEnv("DATABASE_USER", "root"),
			Password: getEnv("DATABASE_PASSWORD", "orders_pass"),
			Name:     getEnv("DATABASE_NAME", "orders_db"),
		},
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		KafkaBrokers:    splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "orders"),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		PickupLocations: DefaultPickupLocations,
	}

	switch cfg.StorageDriver {
	case DriverPostgres, DriverMemory:
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", cfg.StorageDriver)
	}

	var err error
	if cfg.CartTTL, err = time.ParseDuration(getEnv("CART_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("CART_TTL: %w", err)
	}
	if cfg.OTelEnabled, err = strconv.ParseBool(getEnv("OTEL_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("OTEL_ENABLED: %w", err)
	}
	if cfg.Pricing.Fee, err = getInt64("SHIPPING_FEE", domain.DefaultShippingFee); err != nil {
		return nil, err
	}
	if cfg.Pricing.FreeThreshold, err = getInt64("FREE_SHIPPING_THRESHOLD", domain.DefaultFreeShippingThreshold); err != nil {
		return nil, err
	}
	if locations := splitList(getEnv("PICKUP_LOCATIONS", "")); len(locations) > 0 {
		cfg.PickupLocations = locations
	}
	if cfg.Location, err = time.LoadLocation(getEnv("ORDER_TIMEZONE", "Asia/Taipei")); err != nil {
		return nil, fmt.Errorf("ORDER_TIMEZONE: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
