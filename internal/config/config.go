package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/fleetops/busbooking/internal/booking"
	"github.com/fleetops/busbooking/internal/domain"
)

type Config struct {
	CRDBDSN       string
	MongoURI      string
	RedisAddr     string
	RabbitURL     string
	ListenAddr    string
	HoldTTL       time.Duration
	AgentHoldTTL  time.Duration
	SweepInterval time.Duration
	OTLPEndpoint  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		CRDBDSN:       os.Getenv("CRDB_DSN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RabbitURL:     os.Getenv("RABBIT_URL"),
		ListenAddr:    envOr("LISTEN_ADDR", ":8080"),
		HoldTTL:       durationOr("HOLD_TTL", domain.DefaultHoldTTL),
		AgentHoldTTL:  durationOr("AGENT_HOLD_TTL", domain.AgentHoldTTL),
		SweepInterval: durationOr("SWEEP_INTERVAL", booking.DefaultSweepInterval),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
