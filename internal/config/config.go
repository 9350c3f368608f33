package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaAlertTopic  string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Reading store and processing pass.
	DatabasePath      string
	ProcessSchedule   string
	ReadingWindow     time.Duration
	ReadingLimit      int
	ReadingRetention  time.Duration
	SnapshotPath      string
	KMLPath           string
	DefaultPopulation int
	NotifyEnabled     bool
	NearbyRadiusKm    float64

	// Hazard model artifacts. An empty ModelPath disables prediction.
	ModelPath    string
	FeaturesPath string
	EncoderPath  string

	// Open-Meteo forecast configuration.
	ForecastEnabled   bool
	ForecastBaseURL   string
	ForecastTimeout   time.Duration
	ForecastCacheTTL  time.Duration
	ForecastCacheSize int
	ForecastRateLimit float64
	RedisAddr         string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	readingWindow, err := parseDuration("READING_WINDOW", "24h")
	if err != nil {
		return nil, err
	}
	retention, err := parseDuration("READING_RETENTION", "168h")
	if err != nil {
		return nil, err
	}
	forecastTimeout, err := parseDuration("FORECAST_TIMEOUT", "25s")
	if err != nil {
		return nil, err
	}
	forecastTTL, err := parseDuration("FORECAST_CACHE_TTL", "600s")
	if err != nil {
		return nil, err
	}

	readingLimit, err := parsePositiveInt("READING_LIMIT", 100)
	if err != nil {
		return nil, err
	}
	population, err := parsePositiveInt("DEFAULT_POPULATION", 10000)
	if err != nil {
		return nil, err
	}
	forecastRate, err := parsePositiveFloat("FORECAST_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	nearbyRadius, err := parsePositiveFloat("NEARBY_RADIUS_KM", 50)
	if err != nil {
		return nil, err
	}

	schedule := sharedcfg.EnvOrDefault("PROCESS_SCHEDULE", "@every 15m")
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid PROCESS_SCHEDULE: %w", err)
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-hazard-readings"),
		KafkaAlertTopic:    sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "hazard-alerts"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "hazard-engine"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DatabasePath:      sharedcfg.EnvOrDefault("DATABASE_PATH", "data/readings.db"),
		ProcessSchedule:   schedule,
		ReadingWindow:     readingWindow,
		ReadingLimit:      readingLimit,
		ReadingRetention:  retention,
		SnapshotPath:      sharedcfg.EnvOrDefault("SNAPSHOT_PATH", "data/processed/processed_risk_zones.json"),
		KMLPath:           os.Getenv("KML_PATH"),
		DefaultPopulation: population,
		NotifyEnabled:     parseBool("NOTIFY_ENABLED", true),
		NearbyRadiusKm:    nearbyRadius,

		ModelPath:    os.Getenv("HAZARD_MODEL_PATH"),
		FeaturesPath: os.Getenv("HAZARD_FEATURES_PATH"),
		EncoderPath:  os.Getenv("HAZARD_ENCODER_PATH"),

		ForecastEnabled:   parseBool("FORECAST_ENABLED", true),
		ForecastBaseURL:   sharedcfg.EnvOrDefault("FORECAST_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		ForecastTimeout:   forecastTimeout,
		ForecastCacheTTL:  forecastTTL,
		ForecastCacheSize: parseCacheSize(),
		ForecastRateLimit: forecastRate,
		RedisAddr:         os.Getenv("REDIS_ADDR"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.NotifyEnabled && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("NOTIFY_ENABLED is true but KAFKA_ALERT_TOPIC is not set")
	}
	if cfg.SnapshotPath == "" {
		return nil, errors.New("SNAPSHOT_PATH is required")
	}
	if cfg.ReadingRetention < cfg.ReadingWindow {
		return nil, errors.New("READING_RETENTION must not be shorter than READING_WINDOW")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return f, nil
}

func parseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return def
}

func parseCacheSize() int {
	if s := os.Getenv("FORECAST_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
