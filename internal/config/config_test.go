package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "raw-hazard-readings", cfg.KafkaSourceTopic)
	assert.Equal(t, "hazard-alerts", cfg.KafkaAlertTopic)
	assert.Equal(t, "hazard-engine", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.Equal(t, "data/readings.db", cfg.DatabasePath)
	assert.Equal(t, "@every 15m", cfg.ProcessSchedule)
	assert.Equal(t, 24*time.Hour, cfg.ReadingWindow)
	assert.Equal(t, 100, cfg.ReadingLimit)
	assert.Equal(t, 168*time.Hour, cfg.ReadingRetention)
	assert.Equal(t, "data/processed/processed_risk_zones.json", cfg.SnapshotPath)
	assert.Empty(t, cfg.KMLPath)
	assert.Equal(t, 10000, cfg.DefaultPopulation)
	assert.True(t, cfg.NotifyEnabled)
	assert.Equal(t, 50.0, cfg.NearbyRadiusKm)

	assert.Empty(t, cfg.ModelPath)
	assert.True(t, cfg.ForecastEnabled)
	assert.Equal(t, "https://api.open-meteo.com/v1/forecast", cfg.ForecastBaseURL)
	assert.Equal(t, 25*time.Second, cfg.ForecastTimeout)
	assert.Equal(t, 600*time.Second, cfg.ForecastCacheTTL)
	assert.Equal(t, 1000, cfg.ForecastCacheSize)
	assert.Equal(t, 5.0, cfg.ForecastRateLimit)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_ALERT_TOPIC", "custom-alerts")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("DATABASE_PATH", "/tmp/r.db")
	t.Setenv("PROCESS_SCHEDULE", "*/5 * * * *")
	t.Setenv("READING_WINDOW", "6h")
	t.Setenv("READING_LIMIT", "250")
	t.Setenv("SNAPSHOT_PATH", "/tmp/zones.json")
	t.Setenv("KML_PATH", "/tmp/zones.kml")
	t.Setenv("DEFAULT_POPULATION", "5000")
	t.Setenv("NOTIFY_ENABLED", "false")
	t.Setenv("NEARBY_RADIUS_KM", "12.5")
	t.Setenv("HAZARD_MODEL_PATH", "/models/hazard.json")
	t.Setenv("HAZARD_FEATURES_PATH", "/models/features.json")
	t.Setenv("HAZARD_ENCODER_PATH", "/models/encoder.json")
	t.Setenv("FORECAST_ENABLED", "false")
	t.Setenv("FORECAST_TIMEOUT", "5s")
	t.Setenv("FORECAST_CACHE_TTL", "1m")
	t.Setenv("FORECAST_CACHE_SIZE", "50")
	t.Setenv("FORECAST_RATE_LIMIT", "0.5")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-alerts", cfg.KafkaAlertTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, "/tmp/r.db", cfg.DatabasePath)
	assert.Equal(t, "*/5 * * * *", cfg.ProcessSchedule)
	assert.Equal(t, 6*time.Hour, cfg.ReadingWindow)
	assert.Equal(t, 250, cfg.ReadingLimit)
	assert.Equal(t, "/tmp/zones.json", cfg.SnapshotPath)
	assert.Equal(t, "/tmp/zones.kml", cfg.KMLPath)
	assert.Equal(t, 5000, cfg.DefaultPopulation)
	assert.False(t, cfg.NotifyEnabled)
	assert.Equal(t, 12.5, cfg.NearbyRadiusKm)
	assert.Equal(t, "/models/hazard.json", cfg.ModelPath)
	assert.Equal(t, "/models/features.json", cfg.FeaturesPath)
	assert.Equal(t, "/models/encoder.json", cfg.EncoderPath)
	assert.False(t, cfg.ForecastEnabled)
	assert.Equal(t, 5*time.Second, cfg.ForecastTimeout)
	assert.Equal(t, time.Minute, cfg.ForecastCacheTTL)
	assert.Equal(t, 50, cfg.ForecastCacheSize)
	assert.Equal(t, 0.5, cfg.ForecastRateLimit)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_BatchSizeTooLarge(t *testing.T) {
	t.Setenv("BATCH_SIZE", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidBatchFlushInterval(t *testing.T) {
	t.Setenv("BATCH_FLUSH_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_FLUSH_INTERVAL")
}

func TestLoad_InvalidDurations(t *testing.T) {
	for _, key := range []string{"READING_WINDOW", "FORECAST_TIMEOUT", "FORECAST_CACHE_TTL", "READING_RETENTION"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "-5s")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_InvalidReadingLimit(t *testing.T) {
	t.Setenv("READING_LIMIT", "zero")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READING_LIMIT")
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	t.Setenv("FORECAST_RATE_LIMIT", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORECAST_RATE_LIMIT")
}

func TestLoad_InvalidSchedule(t *testing.T) {
	t.Setenv("PROCESS_SCHEDULE", "every now and then")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROCESS_SCHEDULE")
}

func TestLoad_NotifyWithoutTopic(t *testing.T) {
	t.Setenv("KAFKA_ALERT_TOPIC", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_ALERT_TOPIC")
}

func TestLoad_RetentionShorterThanWindow(t *testing.T) {
	t.Setenv("READING_WINDOW", "48h")
	t.Setenv("READING_RETENTION", "24h")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READING_RETENTION")
}

func TestLoad_BadCacheSizeFallsBack(t *testing.T) {
	t.Setenv("FORECAST_CACHE_SIZE", "-3")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.ForecastCacheSize)
}
