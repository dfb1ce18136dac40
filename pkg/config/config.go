package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string // "production" or "development"
	Port string

	StoreDriver       string // "postgres" or "memory"
	DatabaseURL       string
	DBMaxConns        int
	DBMinConns        int
	DBMaxConnIdleTime time.Duration
	ApplySchema       bool
	SchemaPath        string

	ObjectStoreDriver string // "s3" or "memory"
	AWSRegion         string
	S3Bucket          string
	PresignTTL        time.Duration

	CORSOrigins          []string
	CORSAllowCredentials bool

	TLS TLSSettings

	SendGridAPIKey      string
	SendGridSenderEmail string
	SendGridSenderName  string
}

// TLSSettings holds environment-driven TLS configuration.
type TLSSettings struct {
	EnableTLS       bool
	CertPath        string
	KeyPath         string
	AllowSelfSigned bool // allow generating self-signed in dev when files are missing
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	env := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	if env == "" {
		env = strings.ToLower(strings.TrimSpace(os.Getenv("ENV")))
	}
	if env == "" {
		env = "development"
	}

	cfg := Config{
		Env:                  env,
		Port:                 os.Getenv("SERVER_PORT"),
		StoreDriver:          getEnv("STORE_DRIVER", "postgres"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		DBMaxConns:           getEnvAsInt("DB_MAX_CONNS", 10),
		DBMinConns:           getEnvAsInt("DB_MIN_CONNS", 2),
		DBMaxConnIdleTime:    getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
		ApplySchema:          !strings.EqualFold(os.Getenv("APPLY_SCHEMA_ON_START"), "false"),
		SchemaPath:           os.Getenv("SCHEMA_PATH"),
		ObjectStoreDriver:    getEnv("OBJECT_STORE_DRIVER", "s3"),
		AWSRegion:            os.Getenv("AWS_REGION"),
		S3Bucket:             os.Getenv("S3_BUCKET_NAME"),
		PresignTTL:           getEnvAsDuration("S3_PRESIGN_TTL", 15*time.Minute),
		CORSOrigins:          splitOrigins(os.Getenv("CORS_ALLOWED_ORIGINS")),
		CORSAllowCredentials: strings.EqualFold(os.Getenv("CORS_ALLOW_CREDENTIALS"), "true"),
		SendGridAPIKey:       os.Getenv("SENDGRID_API_KEY"),
		SendGridSenderEmail:  os.Getenv("SENDGRID_SENDER_EMAIL"),
		SendGridSenderName:   os.Getenv("SENDGRID_SENDER_NAME"),
	}

	enableTLS := !strings.EqualFold(os.Getenv("ENABLE_TLS"), "false")
	// Enforce TLS in production
	if env == "production" {
		enableTLS = true
	}
	cfg.TLS = TLSSettings{
		EnableTLS:       enableTLS,
		CertPath:        os.Getenv("TLS_CERT_PATH"),
		KeyPath:         os.Getenv("TLS_KEY_PATH"),
		AllowSelfSigned: !strings.EqualFold(os.Getenv("TLS_SELF_SIGNED"), "false"),
	}

	if cfg.Port == "" {
		if cfg.TLS.EnableTLS {
			cfg.Port = "8443"
		} else {
			cfg.Port = "8080"
		}
	}

	return cfg, cfg.Validate()
}

// Validate ensures the settings are safe for the selected environment.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable not set")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.ObjectStoreDriver {
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET_NAME is required when OBJECT_STORE_DRIVER=s3")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown OBJECT_STORE_DRIVER %q", c.ObjectStoreDriver)
	}

	if c.Env == "production" {
		if !c.TLS.EnableTLS {
			return fmt.Errorf("TLS must be enabled in production")
		}
		if c.TLS.CertPath == "" || c.TLS.KeyPath == "" {
			return fmt.Errorf("TLS_CERT_PATH and TLS_KEY_PATH are required in production")
		}
		if c.StoreDriver == "memory" {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
		}
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		o := strings.TrimSpace(p)
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.ToLower(v)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return duration
}
