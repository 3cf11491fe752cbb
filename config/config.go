package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything read from the environment at startup. Mongo and
// redis read their own env vars when their packages initialize, so their
// settings are not duplicated here.
type Config struct {
	ServerPort string

	// Payment gateway (hosted checkout pages + status/verify endpoints)
	GatewayBaseURL string
	GatewaySecret  string

	// Verification monitor timings, see payment package.
	PaymentGrace   time.Duration
	PaymentPoll    time.Duration
	PaymentCeiling time.Duration

	UploadDir string
}

var C *Config

// Load reads .env (if present) and populates C. Call once from main.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	c := &Config{
		ServerPort:     getEnvOrDefault("PORT", ":8080"),
		GatewayBaseURL: getEnvOrDefault("GATEWAY_BASE_URL", "http://localhost:9090"),
		GatewaySecret:  getEnvOrDefault("GATEWAY_SECRET", "dev_gateway_secret"),
		PaymentGrace:   2 * time.Second,
		PaymentPoll:    3 * time.Second,
		PaymentCeiling: 15 * time.Minute,
		UploadDir:      getEnvOrDefault("UPLOAD_DIR", "static/uploads"),
	}

	if c.ServerPort[0] != ':' {
		c.ServerPort = ":" + c.ServerPort
	}
	if d := os.Getenv("PAYMENT_CEILING"); d != "" {
		if dur, err := time.ParseDuration(d); err == nil {
			c.PaymentCeiling = dur
		} else {
			log.Printf("invalid PAYMENT_CEILING %q: %v", d, err)
		}
	}

	C = c
	return c
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
