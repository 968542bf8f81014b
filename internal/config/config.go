package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "dev-secret-change-me"

// Config holds the application configuration.
type Config struct {
	Env             string        `mapstructure:"APP_ENV"`
	Port            string        `mapstructure:"PORT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	MongoURI        string        `mapstructure:"MONGO_URI"`
	MongoDatabase   string        `mapstructure:"MONGO_DATABASE"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	JWTIssuer       string        `mapstructure:"JWT_ISSUER"`
	AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	AllowedOrigins  string        `mapstructure:"ALLOWED_ORIGINS"`
	UploadDir       string        `mapstructure:"UPLOAD_DIR"`
	UploadBaseURL   string        `mapstructure:"UPLOAD_BASE_URL"`
	MaxUploadSizeMB int           `mapstructure:"MAX_UPLOAD_SIZE_MB"`
	DefaultLocale   string        `mapstructure:"DEFAULT_LOCALE"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	TracingEnabled  bool          `mapstructure:"TRACING_ENABLED"`
	TOTPIssuer      string        `mapstructure:"TOTP_ISSUER"`
}

// LoadConfig loads the configuration from a .env file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is fine, the process environment is used as is.
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=gamehub port=5432 sslmode=disable")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "gamehub")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "gamehub")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "720h")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("UPLOAD_BASE_URL", "/media")
	v.SetDefault("MAX_UPLOAD_SIZE_MB", 5)
	v.SetDefault("DEFAULT_LOCALE", "en")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TOTP_ISSUER", "GameHub")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks required values and production-only constraints.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.MaxUploadSizeMB < 1 || c.MaxUploadSizeMB > 100 {
		return errors.New("MAX_UPLOAD_SIZE_MB must be between 1 and 100")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Origins splits ALLOWED_ORIGINS into a clean list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// MaxUploadBytes is MAX_UPLOAD_SIZE_MB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) << 20
}
