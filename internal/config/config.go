package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server         ServerConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
	Database       DatabaseConfig
	Auth           AuthConfig
	Reconciliation ReconciliationConfig
	Migrations     MigrationsConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	ReportTTL time.Duration

	// RecalcLockTTL caps how long a school recalculation lock is held.
	RecalcLockTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	PaymentEvents string
	Discrepancies string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN builds a lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type AuthConfig struct {
	Enabled    bool
	OIDCIssuer string
	ClientID   string
	// JWTSecret switches the middleware to HS256 validation when set.
	JWTSecret string
}

type ReconciliationConfig struct {
	Tolerance               decimal.Decimal
	HighSeverityThreshold   decimal.Decimal
	BatchConcurrency        int
	DefaultInsurancePercent decimal.Decimal
}

type MigrationsConfig struct {
	Dir         string
	AutoMigrate bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8090"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", "localhost:6379"),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvInt("REDIS_DB", 0),
			ReportTTL:     getEnvDuration("REPORT_CACHE_TTL", 10*time.Minute),
			RecalcLockTTL: getEnvDuration("RECALC_LOCK_TTL", 15*time.Minute),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "boukii"),
			Password:     getEnv("DB_PASSWORD", "boukii"),
			Database:     getEnv("DB_NAME", "boukii"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID: getEnv("KAFKA_GROUP_ID", "booking-finance-group"),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				PaymentEvents: getEnv("KAFKA_TOPIC_PAYMENT_EVENTS", "booking-payment-events"),
				Discrepancies: getEnv("KAFKA_TOPIC_DISCREPANCIES", "booking-financial-discrepancies"),
			},
		},
		Auth: AuthConfig{
			Enabled:    getEnvBool("AUTH_ENABLED", true),
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
			ClientID:   getEnv("OIDC_CLIENT_ID", "booking-finance"),
			JWTSecret:  getEnv("JWT_SECRET", ""),
		},
		Reconciliation: ReconciliationConfig{
			Tolerance:               getEnvDecimal("RECONCILIATION_TOLERANCE", decimal.RequireFromString("0.50")),
			HighSeverityThreshold:   getEnvDecimal("RECONCILIATION_HIGH_SEVERITY", decimal.NewFromInt(10)),
			BatchConcurrency:        getEnvInt("RECONCILIATION_BATCH_CONCURRENCY", 8),
			DefaultInsurancePercent: getEnvDecimal("DEFAULT_INSURANCE_PERCENT", decimal.RequireFromString("0.10")),
		},
		Migrations: MigrationsConfig{
			Dir:         getEnv("MIGRATIONS_DIR", "./migrations"),
			AutoMigrate: getEnvBool("AUTO_MIGRATE", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if parsed, err := decimal.NewFromString(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
