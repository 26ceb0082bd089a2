package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminAPIKey   string

	// DatabaseURL empty means the in-memory stores back the process. That
	// mode is single-process only; cross-process serialization needs Postgres.
	DatabaseURL string

	KafkaBrokers []string
	AuditTopic   string

	ProofValidityWindow time.Duration
	ProcessingWindow    time.Duration
	ChallengeTTL        time.Duration
	TokenTTL            time.Duration
	CheckCacheTTL       time.Duration
	ShutdownTimeout     time.Duration

	Redis RedisConfig
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("DEEPROOF_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "deeproof.audit"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     envOr("JWT_ISSUER", "deeproof"),
		JWTAudience:   envOr("JWT_AUDIENCE", "deeproof-api"),
		AdminAPIKey:   os.Getenv("ADMIN_API_KEY"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		AuditTopic:    auditTopic,

		ProofValidityWindow: envDuration("PROOF_VALIDITY_WINDOW", 10*time.Minute),
		ProcessingWindow:    envDuration("PROCESSING_WINDOW", 60*time.Second),
		ChallengeTTL:        envDuration("AUTH_CHALLENGE_TTL", 5*time.Minute),
		TokenTTL:            envDuration("ACCESS_TOKEN_TTL", time.Hour),
		CheckCacheTTL:       envDuration("CHECK_CACHE_TTL", 30*time.Second),
		ShutdownTimeout:     envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
