package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/storage/migrations"
)

const (
	connectAttempts = 3
	pingTimeout     = 5 * time.Second
)

// Connect opens the pool sized by cfg.DB, retrying with backoff while the
// database comes up
func Connect(cfg *config.Config) (*gorm.DB, error) {
	log := logger.Database()

	if err := validateDatabaseConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	log.Debug("Connecting to database", "host", cfg.DB.Host, "port", cfg.DB.Port, "database", cfg.DB.Name)

	level := gormLogger.Silent
	if cfg.Server.GinMode == "debug" {
		level = gormLogger.Info
	}
	// TranslateError maps driver errors to gorm.ErrDuplicatedKey and friends
	gormConfig := &gorm.Config{
		Logger:         gormLogger.Default.LogMode(level),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		PrepareStmt:    true,
		TranslateError: true,
	}

	var db *gorm.DB
	var err error
	delay := 2 * time.Second
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = gorm.Open(postgres.Open(cfg.GetDatabaseURL()), gormConfig)
		if err == nil {
			break
		}
		log.Warn("Database connection failed", "attempt", attempt, "error", err)
		if attempt < connectAttempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := HealthCheck(ctx, db); err != nil {
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}

	log.Info("Connected to PostgreSQL database",
		"host", cfg.DB.Host,
		"database", cfg.DB.Name,
		"max_open_conns", cfg.DB.MaxOpenConns)
	return db, nil
}

func validateDatabaseConfig(cfg *config.Config) error {
	switch {
	case cfg == nil:
		return fmt.Errorf("config cannot be nil")
	case cfg.DB.Host == "":
		return fmt.Errorf("database host cannot be empty")
	case cfg.DB.Port == "":
		return fmt.Errorf("database port cannot be empty")
	case cfg.DB.Name == "":
		return fmt.Errorf("database name cannot be empty")
	case cfg.DB.User == "":
		return fmt.Errorf("database user cannot be empty")
	}
	return nil
}

// HealthCheck pings the database until ctx is done
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// AutoMigrate applies the pending schema migrations
func AutoMigrate(db *gorm.DB) error {
	log := logger.Migration()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := HealthCheck(ctx, db); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	start := time.Now()
	if err := migrations.RunMigrations(db); err != nil {
		log.Error("Database migrations failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("Database migrations completed", "duration", time.Since(start))
	return nil
}

// Close closes the connection pool
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	logger.Database().Info("Database connection closed")
	return nil
}
