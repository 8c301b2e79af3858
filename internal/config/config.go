package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevAuthSecret is only ever used when neither AUTH_SECRET nor JWT_SECRET is set.
const DevAuthSecret = "sitecms-insecure-dev-secret-change-me"

type Config struct {
	Env  string
	Port int

	// DatabaseURL selects the postgres backend when non-empty.
	DatabaseURL string
	DBMaxConns  int
	DataFile    string

	AuthSecret         string
	InsecureAuthSecret bool
	SessionTTL         time.Duration

	CORSOrigins  []string
	MaxBodyBytes int64

	UploadDir     string
	MediaBaseURL  string
	MaxUploadMB   int
	BlobToken     string
	BlobAccessKey string
	BlobBucket    string
	BlobRegion    string
	BlobEndpoint  string
	BlobPublicURL string

	AdminEmail    string
	AdminPassword string
	AdminName     string
	AdminRole     string

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RevalidateChannel  string
	RevalidateWebhook  string
	RevalidateSecret   string
	WorkerHealthPort   int
	OTLPEndpoint       string
	LoginRateLimit     int
	PublicCacheTTL     time.Duration
}

func Load() Config {
	// a missing .env is the normal case outside local development
	_ = godotenv.Load()

	secret, insecure := authSecret()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),
		DataFile:    getEnv("DATA_FILE", "data/cms.json"),

		AuthSecret:         secret,
		InsecureAuthSecret: insecure,
		SessionTTL:         7 * 24 * time.Hour,

		CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"*"}),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		UploadDir:     getEnv("UPLOAD_DIR", "data/uploads"),
		MediaBaseURL:  getEnv("MEDIA_BASE_URL", "/media"),
		MaxUploadMB:   getEnvInt("MAX_UPLOAD_MB", 20),
		BlobToken:     os.Getenv("BLOB_READ_WRITE_TOKEN"),
		BlobAccessKey: os.Getenv("BLOB_ACCESS_KEY_ID"),
		BlobBucket:    getEnv("BLOB_BUCKET", "media"),
		BlobRegion:    getEnv("BLOB_REGION", "us-east-1"),
		BlobEndpoint:  os.Getenv("BLOB_ENDPOINT"),
		BlobPublicURL: os.Getenv("BLOB_PUBLIC_URL"),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
		AdminRole:     "admin",

		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RevalidateChannel: getEnv("REVALIDATE_CHANNEL", "sitecms:revalidate"),
		RevalidateWebhook: os.Getenv("REVALIDATE_WEBHOOK_URL"),
		RevalidateSecret:  os.Getenv("REVALIDATE_SECRET"),
		WorkerHealthPort:  getEnvInt("WORKER_HEALTH_PORT", 8081),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LoginRateLimit:    getEnvInt("LOGIN_RATE_LIMIT", 10),
		PublicCacheTTL:    time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,
	}
}

// Validate rejects configurations that must never reach production.
func (c Config) Validate() error {
	if c.Env == "prod" && c.InsecureAuthSecret {
		return fmt.Errorf("AUTH_SECRET must be set when APP_ENV=prod")
	}
	if c.BlobToken != "" && c.BlobAccessKey == "" {
		return fmt.Errorf("BLOB_ACCESS_KEY_ID is required when BLOB_READ_WRITE_TOKEN is set")
	}
	return nil
}

func (c Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

func (c Config) UsesObjectStorage() bool {
	return c.BlobToken != ""
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func authSecret() (string, bool) {
	for _, key := range []string{"AUTH_SECRET", "JWT_SECRET"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v, false
		}
	}
	return DevAuthSecret, true
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not a number, using %d\n", key, v, fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
