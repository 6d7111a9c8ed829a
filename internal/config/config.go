package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	ListenAddr  string

	// Currency accepted at checkout. Gateway callbacks must report the
	// same currency or the payment is flagged for review.
	Currency string

	GatewayBaseURL string
	GatewaySecret  string
	GatewayTimeout time.Duration

	RedisAddr string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getenv("APP_SERVICE", "storefront"),
		AppVersion:     getenv("APP_VERSION", "0.1.0"),
		Environment:    getenv("ENVIRONMENT", "development"),
		ListenAddr:     getenv("LISTEN_ADDR", ":8080"),
		Currency:       strings.ToUpper(strings.TrimSpace(getenv("CHECKOUT_CURRENCY", "USD"))),
		GatewayBaseURL: strings.TrimRight(getenv("GATEWAY_BASE_URL", "http://localhost:9099"), "/"),
		GatewaySecret:  strings.TrimSpace(getenv("GATEWAY_WEBHOOK_SECRET", "")),
		GatewayTimeout: getenvDuration("GATEWAY_TIMEOUT", 10*time.Second),
		RedisAddr:      strings.TrimSpace(getenv("REDIS_ADDR", "")),
		DBType:         getenv("DATABASE_TYPE", "postgres"),
		DBHost:         getenv("DATABASE_HOST", "localhost"),
		DBPort:         getenv("DATABASE_PORT", "5432"),
		DBName:         getenv("DATABASE_NAME", "postgres"),
		DBUser:         getenv("DATABASE_USER", "postgres"),
		DBPassword:     getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:      getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:  getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:  getenvInt("DATABASE_MAX_OPEN_CONN", 25),

		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
	}

	return cfg
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewCheckoutConfigHolder),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
