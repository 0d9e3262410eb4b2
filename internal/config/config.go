package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers      []string
	KafkaRequestTopic string
	KafkaSinkTopic    string
	KafkaGroupID      string
	HTTPAddr          string
	LogLevel          string
	LogFormat         string
	ShutdownTimeout   time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Station registry configuration. An empty DatabaseURL selects the
	// file-seeded static registry; an empty RedisAddr disables caching.
	DatabaseURL     string
	RedisAddr       string
	StationCacheTTL time.Duration
	StationSeedPath string

	// UseSeasonal is the default correction mode for requests that carry no
	// seasonal flag of their own.
	UseSeasonal bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseIntEnv("BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}

	flushInterval, err := parseDurationEnv("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parseDurationEnv("STATION_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRequestTopic:  envOrDefault("KAFKA_REQUEST_TOPIC", "tropo-correction-requests"),
		KafkaSinkTopic:     envOrDefault("KAFKA_SINK_TOPIC", "tropo-corrections"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "tropo-correction-service"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		StationCacheTTL: cacheTTL,
		StationSeedPath: envOrDefault("STATION_SEED_PATH", "data/seeds/stations.json"),

		UseSeasonal: parseBoolEnv("USE_SEASONAL", true),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaRequestTopic == "" {
		return nil, errors.New("KAFKA_REQUEST_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.DatabaseURL == "" && cfg.StationSeedPath == "" {
		return nil, errors.New("STATION_SEED_PATH is required when DATABASE_URL is not set")
	}

	return cfg, nil
}

// envOrDefault returns the environment value for key, or def when unset.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseBrokers splits a comma-separated broker list, trimming whitespace and
// dropping empty entries.
func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	v := envOrDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return def
}
