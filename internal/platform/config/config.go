package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean.
type Server struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	// Organizer auth. The secret hash is a bcrypt hash; the cleartext is
	// never configured.
	JWTSigningKey       string
	OrganizerID         string
	OrganizerSecretHash string
	TokenTTL            time.Duration

	// PrincipalCacheTTL bounds how long a validated principal is served from
	// cache before the token is re-verified.
	PrincipalCacheTTL time.Duration
}

// RedisConfig configures the optional Redis-backed principal cache.
// An empty URL disables Redis; the in-memory cache is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional Kafka event sink. Empty brokers
// disable publishing to Kafka; events still reach the in-process sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := getenv("LUCKDRAW_ADDR", ":8080")

	jwtSigningKey := os.Getenv("LUCKDRAW_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	kafkaTopic := getenv("LUCKDRAW_KAFKA_TOPIC", "luckdraw.events")
	var brokers []string
	if raw := os.Getenv("LUCKDRAW_KAFKA_BROKERS"); raw != "" {
		brokers = splitCSV(raw)
	}

	return Server{
		Addr:        addr,
		DatabaseURL: os.Getenv("LUCKDRAW_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("LUCKDRAW_REDIS_URL"),
			PoolSize:     getenvInt("LUCKDRAW_REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("LUCKDRAW_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   kafkaTopic,
		},
		JWTSigningKey:       jwtSigningKey,
		OrganizerID:         os.Getenv("LUCKDRAW_ORGANIZER_ID"),
		OrganizerSecretHash: os.Getenv("LUCKDRAW_ORGANIZER_SECRET_HASH"),
		TokenTTL:            getenvDuration("LUCKDRAW_TOKEN_TTL", time.Hour),
		PrincipalCacheTTL:   getenvDuration("LUCKDRAW_PRINCIPAL_CACHE_TTL", 5*time.Minute),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
