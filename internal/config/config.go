package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	pkgconfig "github.com/utafrali/SocialGo/pkg/config"
	"github.com/utafrali/SocialGo/pkg/database"
)

// Session backends.
const (
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
)

// Media backends.
const (
	MediaBackendMemory     = "memory"
	MediaBackendCloudinary = "cloudinary"
	MediaBackendS3         = "s3"
)

const (
	devAccessSecret  = "change-this-access-secret"
	devRefreshSecret = "change-this-refresh-secret"
	minSecretLength  = 32
)

// Config holds all configuration for the social service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SOCIAL_HTTP_PORT" envDefault:"8000"`

	// PostgreSQL
	PostgresHost  string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort  int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser  string `env:"POSTGRES_USER" envDefault:"social"`
	PostgresPass  string `env:"POSTGRES_PASSWORD" envDefault:"social_secret"`
	PostgresDB    string `env:"SOCIAL_DB_NAME" envDefault:"social_db"`
	PostgresSSL   string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns    int32  `env:"DB_MIN_CONNS" envDefault:"5"`
	DBSlowQueryMS int    `env:"DB_SLOW_QUERY_MS" envDefault:"200"`

	// Session slot
	SessionBackend string `env:"SESSION_BACKEND" envDefault:"postgres"`
	RedisHost      string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort      int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`

	// JWT
	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET" envDefault:"change-this-access-secret"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET" envDefault:"change-this-refresh-secret"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"240h"`

	// Cookies and CORS
	CookieSecure       bool     `env:"COOKIE_SECURE" envDefault:"true"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Media
	MediaBackend        string `env:"MEDIA_BACKEND" envDefault:"memory"`
	MediaTempDir        string `env:"MEDIA_TEMP_DIR" envDefault:"./public/temp"`
	MediaMaxUploadBytes int64  `env:"MEDIA_MAX_UPLOAD_BYTES" envDefault:"10485760"`
	MediaPublicBaseURL  string `env:"MEDIA_PUBLIC_BASE_URL" envDefault:"http://localhost:8000"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	CloudinaryBaseURL   string `env:"CLOUDINARY_BASE_URL" envDefault:"https://api.cloudinary.com"`

	S3Bucket        string `env:"S3_BUCKET"`
	S3Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	S3BaseEndpoint  string `env:"S3_BASE_ENDPOINT"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load social config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field rules. It runs as part of Load.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.JWTAccessExpiry <= 0 || c.JWTRefreshExpiry <= 0 {
		return errors.New("JWT token expiries must be positive")
	}
	if c.MediaMaxUploadBytes <= 0 {
		return fmt.Errorf("MEDIA_MAX_UPLOAD_BYTES must be positive, got %d", c.MediaMaxUploadBytes)
	}

	switch c.SessionBackend {
	case SessionBackendPostgres, SessionBackendRedis:
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q",
			SessionBackendPostgres, SessionBackendRedis, c.SessionBackend)
	}

	switch c.MediaBackend {
	case MediaBackendMemory:
	case MediaBackendCloudinary:
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			return errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required for the cloudinary media backend")
		}
	case MediaBackendS3:
		if c.S3Bucket == "" || c.S3AccessKey == "" || c.S3SecretKey == "" {
			return errors.New("S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY are required for the s3 media backend")
		}
	default:
		return fmt.Errorf("unknown MEDIA_BACKEND %q", c.MediaBackend)
	}

	// Outside development both secrets must be explicitly set, strong and
	// distinct, and CORS origins must be listed.
	if c.Environment != "development" {
		if c.JWTAccessSecret == devAccessSecret || c.JWTRefreshSecret == devRefreshSecret {
			return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTAccessSecret) < minSecretLength {
			return fmt.Errorf("JWT_ACCESS_SECRET must be at least %d characters long, got %d", minSecretLength, len(c.JWTAccessSecret))
		}
		if len(c.JWTRefreshSecret) < minSecretLength {
			return fmt.Errorf("JWT_REFRESH_SECRET must be at least %d characters long, got %d", minSecretLength, len(c.JWTRefreshSecret))
		}
		if c.JWTAccessSecret == c.JWTRefreshSecret {
			return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
		}
		if slices.Contains(c.CORSAllowedOrigins, "*") {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS must list explicit origins in %q mode", c.Environment)
		}
	}

	return nil
}

// Postgres returns the pool settings.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		User:     c.PostgresUser,
		Password: c.PostgresPass,
		DBName:   c.PostgresDB,
		SSLMode:  c.PostgresSSL,
		MaxConns: c.DBMaxConns,
		MinConns: c.DBMinConns,
	}
}

// Redis returns the Redis client settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// SlowQueryThreshold returns DB_SLOW_QUERY_MS as a duration.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.DBSlowQueryMS) * time.Millisecond
}
