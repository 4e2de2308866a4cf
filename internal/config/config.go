// Package config содержит логику чтения конфигурации интернет-магазина.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultKafkaTopic используется, если топик событий заказов не задан.
const DefaultKafkaTopic = "storefront.orders"

// Config содержит параметры конфигурации интернет-магазина.
type Config struct {
	RunAddress     string   `env:"RUN_ADDRESS"`
	DatabaseURI    string   `env:"DATABASE_URI"`
	RedisAddress   string   `env:"REDIS_ADDRESS"`
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	CatalogAddress string   `env:"CATALOG_ADDRESS"`
	AuthSecret     string   `env:"AUTH_SECRET"`

	KafkaTopic         string        `env:"KAFKA_TOPIC" envDefault:"storefront.orders"`
	EventsPollInterval time.Duration `env:"EVENTS_POLL_INTERVAL" envDefault:"2s"`

	// Политики жизненного цикла заказа задаются только окружением.
	StrictPayment   bool     `env:"STRICT_PAYMENT"`
	RecomputeTotals bool     `env:"RECOMPUTE_TOTALS"`
	AdminEmails     []string `env:"ADMIN_EMAILS" envSeparator:","`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisAddress := cfg.RedisAddress
	envKafkaBrokers := cfg.KafkaBrokers
	envCatalogAddress := cfg.CatalogAddress
	envAuthSecret := cfg.AuthSecret

	var kafkaBrokers string

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for session storage")
	flag.StringVar(&kafkaBrokers, "k", "", "comma separated kafka brokers for order events")
	flag.StringVar(&cfg.CatalogAddress, "c", "", "product catalog address")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for signing auth tokens")

	flag.Parse()

	cfg.KafkaBrokers = splitList(kafkaBrokers)

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if len(envKafkaBrokers) > 0 {
		cfg.KafkaBrokers = splitList(strings.Join(envKafkaBrokers, ","))
	}
	if envCatalogAddress != "" {
		cfg.CatalogAddress = envCatalogAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = DefaultKafkaTopic
	}
	if cfg.EventsPollInterval <= 0 {
		return nil, fmt.Errorf("events poll interval must be positive, got %s", cfg.EventsPollInterval)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
