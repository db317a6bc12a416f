package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Baseline BaselineConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Site     SiteConfig
	Worker   WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	GinMode            string
}

// StorageConfig holds the S3-compatible object store settings.
type StorageConfig struct {
	Endpoint        string // optional, for R2/MinIO
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
	ForcePathStyle  bool
	KeyPrefix       string
}

// RemoteConfigured reports whether enough is set to use the object store.
func (s StorageConfig) RemoteConfigured() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// Baseline drivers.
const (
	BaselineFile     = "file"
	BaselinePostgres = "postgres"
)

// BaselineConfig selects where the baseline snapshot lives.
type BaselineConfig struct {
	Driver string
	Dir    string // data directory for the file driver
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings. An empty Addr disables
// cross-instance invalidation.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds the admin login settings.
type AuthConfig struct {
	// AdminSecretHash is a bcrypt hash of the admin secret. AdminSecret is
	// hashed at startup when no hash is given.
	AdminSecretHash string
	AdminSecret     string
	JWTSecret       string
	SessionHours    int
	SecureCookie    bool
}

// SessionTTL returns the session lifetime.
func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionHours) * time.Hour
}

// SiteConfig holds content behavior settings.
type SiteConfig struct {
	Timezone         string
	AllowLocalWrites bool
	DisplayCacheTTL  time.Duration
}

// Location loads the site timezone.
func (s SiteConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// WorkerConfig controls the blob delete retry worker.
type WorkerConfig struct {
	// Embedded runs the worker inside the HTTP server. Disable it when
	// cmd/worker runs separately.
	Embedded bool
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 60),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			GinMode:            getEnv("GIN_MODE", "release"),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("S3_BUCKET", ""),
			PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
			ForcePathStyle:  getEnvBool("S3_FORCE_PATH_STYLE", false),
			KeyPrefix:       strings.Trim(getEnv("S3_KEY_PREFIX", "content"), "/"),
		},
		Baseline: BaselineConfig{
			Driver: strings.ToLower(getEnv("BASELINE_DRIVER", BaselineFile)),
			Dir:    getEnv("BASELINE_DIR", "data"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "content"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			AdminSecretHash: getEnv("ADMIN_SECRET_HASH", ""),
			AdminSecret:     getEnv("ADMIN_SECRET", ""),
			JWTSecret:       getEnv("JWT_SECRET", "change-me-in-production"),
			SessionHours:    getEnvInt("SESSION_HOURS", 12),
			SecureCookie:    getEnvBool("SECURE_COOKIE", true),
		},
		Site: SiteConfig{
			Timezone:         getEnv("SITE_TIMEZONE", "UTC"),
			AllowLocalWrites: getEnvBool("ALLOW_LOCAL_WRITES", false),
			DisplayCacheTTL:  getEnvDuration("DISPLAY_CACHE_TTL", 30*time.Second),
		},
		Worker: WorkerConfig{
			Embedded: getEnvBool("RUN_EMBEDDED_WORKER", true),
		},
	}

	if cfg.Baseline.Driver != BaselineFile && cfg.Baseline.Driver != BaselinePostgres {
		return nil, fmt.Errorf("BASELINE_DRIVER must be %q or %q, got %q", BaselineFile, BaselinePostgres, cfg.Baseline.Driver)
	}
	if cfg.Auth.SessionHours <= 0 {
		return nil, fmt.Errorf("SESSION_HOURS must be positive")
	}
	if _, err := cfg.Site.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
