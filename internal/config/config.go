package config

import (
	"os"
	"strconv"
	"time"

	"planet/internal/cache"
	"planet/internal/database"
	"planet/internal/messaging"
)

// Config holds the process configuration, assembled from the environment.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	PprofEnabled bool
	PprofPort    string

	Database      database.Config
	NATS          messaging.Config
	Valkey        cache.Config
	Elasticsearch ElasticsearchConfig
}

// Load reads configuration from environment variables with local defaults.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		PprofEnabled: getEnv("PPROF_ENABLED", "false") == "true",
		PprofPort:    getEnv("PPROF_PORT", "6060"),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "planet"),
			Password:           getEnv("DB_PASSWORD", "planet123"),
			DBName:             getEnv("DB_NAME", "planet"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "planet"),
			ClientID:  getEnv("NATS_CLIENT_ID", "planet-api"),
		},

		Valkey: cache.Config{
			Enabled:  getEnv("VALKEY_ENABLED", "false") == "true",
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			TTL:      time.Duration(getEnvInt("VALKEY_TTL_SEC", 30)) * time.Second,
		},

		Elasticsearch: LoadElasticsearchConfig(),
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
