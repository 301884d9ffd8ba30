package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                   string
	DatabaseURL            string
	RedisURL               string
	LogLevel               string
	JWTSecret              string
	JWTIssuer              string
	JWTTTL                 time.Duration
	Currency               string
	RateLimitPerMinute     int
	RateLimitBurst         int
	AuthRateLimitPerMinute int
	AuthRateLimitBurst     int
	NotifyPollInterval     time.Duration
	NotifyBatchSize        int
	NotifyMaxAttempts      int
	NotifyProvider         string
	NotifyWebhookURL       string
	NotifyWebhookToken     string
	PaymentHold            time.Duration
	TrustedProxies         []string
	OTLPEndpoint           string
	OTLPInsecure           bool
}

// Load reads the process environment. A .env file in the working directory
// is applied first without overriding variables that are already set.
func Load() Config {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                   port,
		DatabaseURL:            os.Getenv("DB_DSN"),
		RedisURL:               os.Getenv("REDIS_URL"),
		LogLevel:               os.Getenv("LOG_LEVEL"),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		JWTIssuer:              readString("JWT_ISSUER", "travelbook"),
		JWTTTL:                 readDurationHours("JWT_TTL_HOURS", 7*24),
		Currency:               readString("PAYMENT_CURRENCY", "usd"),
		RateLimitPerMinute:     readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:         readInt("RATE_LIMIT_BURST", 30),
		AuthRateLimitPerMinute: readInt("AUTH_RATE_LIMIT_PER_MIN", 20),
		AuthRateLimitBurst:     readInt("AUTH_RATE_LIMIT_BURST", 5),
		NotifyPollInterval:     readDurationSeconds("NOTIF_POLL_SECONDS", 5),
		NotifyBatchSize:        readInt("NOTIF_BATCH_SIZE", 50),
		NotifyMaxAttempts:      readInt("NOTIF_MAX_ATTEMPTS", 3),
		NotifyProvider:         os.Getenv("NOTIF_PROVIDER"),
		NotifyWebhookURL:       os.Getenv("NOTIF_WEBHOOK_URL"),
		NotifyWebhookToken:     os.Getenv("NOTIF_WEBHOOK_TOKEN"),
		PaymentHold:            readDurationSeconds("PAYMENT_HOLD_SECONDS", 30*60),
		TrustedProxies:         readList("TRUSTED_PROXIES"),
		OTLPEndpoint:           os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure:           readBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}
}

func readString(key, fallback string) string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	return raw
}

// readList splits a comma separated value, dropping empty entries.
func readList(key string) []string {
	var out []string
	for _, item := range strings.Split(readString(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readDurationHours(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Hour
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
