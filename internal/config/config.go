package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App struct {
		Name        string
		Environment string
		LogLevel    string
	}

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string

		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
	}

	Server struct {
		Port            string
		GinMode         string
		ShutdownTimeout time.Duration
	}

	Storage struct {
		Type string
	}

	Auth struct {
		JWTSecret  string
		TokenTTL   time.Duration
		BcryptCost int
	}

	Objects struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
		URLExpiry time.Duration
	}

	Realtime struct {
		SubscriberBuffer     int
		MinReconnectInterval time.Duration
		MaxReconnectInterval time.Duration
	}

	Upload struct {
		MaxFileSize int64
	}

	CORS struct {
		AllowOrigins string
		AllowMethods string
		AllowHeaders string
	}
}

// Load loads configuration from environment variables
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{}

	config.App.Name = getEnv("APP_NAME", "community-portal")
	config.App.Environment = getEnv("APP_ENV", "development")
	config.App.LogLevel = getEnv("LOG_LEVEL", "info")

	config.DB.Host = getEnv("DB_HOST", "localhost")
	config.DB.Port = getEnv("DB_PORT", "5432")
	config.DB.User = getEnv("DB_USER", "portal")
	config.DB.Password = getEnv("DB_PASSWORD", "portal_password")
	config.DB.Name = getEnv("DB_NAME", "portal_db")
	config.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	config.DB.MaxOpenConns = int(getEnvAsInt64("DB_MAX_OPEN_CONNS", 25))
	config.DB.MaxIdleConns = int(getEnvAsInt64("DB_MAX_IDLE_CONNS", 10))
	config.DB.ConnMaxLifetime = getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour)

	config.Server.Port = getEnv("PORT", "8080")
	config.Server.GinMode = getEnv("GIN_MODE", "debug")
	config.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second)

	config.Storage.Type = getEnv("STORAGE_TYPE", "postgres")

	config.Auth.JWTSecret = getEnv("JWT_SECRET", "")
	config.Auth.TokenTTL = getEnvAsDuration("TOKEN_TTL", 7*24*time.Hour)
	config.Auth.BcryptCost = int(getEnvAsInt64("BCRYPT_COST", 10))

	config.Objects.Endpoint = getEnv("MINIO_ENDPOINT", "")
	config.Objects.AccessKey = getEnv("MINIO_ACCESS_KEY", "")
	config.Objects.SecretKey = getEnv("MINIO_SECRET_KEY", "")
	config.Objects.Bucket = getEnv("MINIO_BUCKET", "portal-attachments")
	config.Objects.UseSSL = getEnvAsBool("MINIO_USE_SSL", false)
	config.Objects.URLExpiry = getEnvAsDuration("MINIO_URL_EXPIRY", 15*time.Minute)

	config.Realtime.SubscriberBuffer = int(getEnvAsInt64("REALTIME_SUBSCRIBER_BUFFER", 64))
	config.Realtime.MinReconnectInterval = getEnvAsDuration("REALTIME_MIN_RECONNECT", 2*time.Second)
	config.Realtime.MaxReconnectInterval = getEnvAsDuration("REALTIME_MAX_RECONNECT", time.Minute)

	config.Upload.MaxFileSize = getEnvAsInt64("MAX_FILE_SIZE", 10485760)

	config.CORS.AllowOrigins = getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	config.CORS.AllowMethods = getEnv("CORS_ALLOW_METHODS", "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS")
	config.CORS.AllowHeaders = getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Length,Content-Type,Authorization")

	return config
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Type {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type))
	}

	if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters in production"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.DB.MaxOpenConns <= 0 || c.DB.MaxIdleConns > c.DB.MaxOpenConns {
		errs = append(errs, errors.New("DB_MAX_IDLE_CONNS must not exceed a positive DB_MAX_OPEN_CONNS"))
	}
	if c.Realtime.SubscriberBuffer <= 0 {
		errs = append(errs, errors.New("REALTIME_SUBSCRIBER_BUFFER must be positive"))
	}
	if c.Realtime.MaxReconnectInterval < c.Realtime.MinReconnectInterval {
		errs = append(errs, errors.New("REALTIME_MAX_RECONNECT must not be lower than REALTIME_MIN_RECONNECT"))
	}
	if c.Objects.Endpoint != "" && (c.Objects.AccessKey == "" || c.Objects.SecretKey == "") {
		errs = append(errs, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return "postgres://" + c.DB.User + ":" + c.DB.Password + "@" + c.DB.Host + ":" + c.DB.Port + "/" + c.DB.Name + "?sslmode=" + c.DB.SSLMode
}

// AllowedOrigins splits the CORS origin list
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORS.AllowOrigins)
}

// AllowedMethods splits the CORS method list
func (c *Config) AllowedMethods() []string {
	return splitList(c.CORS.AllowMethods)
}

// AllowedHeaders splits the CORS header list
func (c *Config) AllowedHeaders() []string {
	return splitList(c.CORS.AllowHeaders)
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 gets an environment variable as int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
