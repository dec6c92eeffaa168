package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/domain/announcement"
	"github.com/gravadigital/community-portal/internal/domain/event"
	"github.com/gravadigital/community-portal/internal/domain/message"
	"github.com/gravadigital/community-portal/internal/domain/note"
	"github.com/gravadigital/community-portal/internal/domain/permanence"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/domain/project"
	"github.com/gravadigital/community-portal/internal/domain/vote"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/storage/migrations"
)

// repositories groups every repository bound to one *gorm.DB, which is
// either the pool or an open transaction
type repositories struct {
	profiles      *PostgresProfileRepository
	events        *PostgresEventRepository
	permanences   *PostgresPermanenceRepository
	votes         *PostgresVoteRepository
	projects      *PostgresProjectRepository
	notes         *PostgresNoteRepository
	announcements *PostgresAnnouncementRepository
	messages      *PostgresMessageRepository
}

func newRepositories(db *gorm.DB) repositories {
	return repositories{
		profiles:      NewPostgresProfileRepository(db),
		events:        NewPostgresEventRepository(db),
		permanences:   NewPostgresPermanenceRepository(db),
		votes:         NewPostgresVoteRepository(db),
		projects:      NewPostgresProjectRepository(db),
		notes:         NewPostgresNoteRepository(db),
		announcements: NewPostgresAnnouncementRepository(db),
		messages:      NewPostgresMessageRepository(db),
	}
}

func (r repositories) Profiles() profile.Repository           { return r.profiles }
func (r repositories) Events() event.Repository               { return r.events }
func (r repositories) Permanences() permanence.Repository     { return r.permanences }
func (r repositories) Votes() vote.Repository                 { return r.votes }
func (r repositories) Projects() project.Repository           { return r.projects }
func (r repositories) Notes() note.Repository                 { return r.notes }
func (r repositories) Announcements() announcement.Repository { return r.announcements }
func (r repositories) Messages() message.Repository           { return r.messages }

// Container holds the connection pool and the repositories built on it
type Container struct {
	repositories
	db  *gorm.DB
	log *log.Logger
}

// NewContainer connects, runs the pending migrations and checks every table
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	log := logger.Repository("postgres_container")
	log.Info("Initializing PostgreSQL repository container...")

	db, err := Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		log.Error("Failed to run migrations", "error", err)
		_ = Close(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	container := NewContainerWithDB(db)
	if err := container.Health(ctx); err != nil {
		log.Error("Container health check failed", "error", err)
		_ = Close(db)
		return nil, fmt.Errorf("container health check failed: %w", err)
	}

	log.Info("PostgreSQL repository container initialized successfully")
	return container, nil
}

// NewContainerWithDB creates a container with an existing database connection
func NewContainerWithDB(db *gorm.DB) *Container {
	return &Container{
		repositories: newRepositories(db),
		db:           db,
		log:          logger.Repository("postgres_container"),
	}
}

// Health pings the database and verifies every table of the schema is queryable
func (c *Container) Health(ctx context.Context) error {
	c.log.Debug("Performing container health check...")

	if err := HealthCheck(ctx, c.db); err != nil {
		c.log.Error("Database health check failed", "error", err)
		return fmt.Errorf("database health check failed: %w", err)
	}

	db := c.db.WithContext(ctx)
	for _, table := range migrations.Tables() {
		if err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1").Error; err != nil {
			c.log.Error("Table health check failed", "table", table, "error", err)
			return fmt.Errorf("table %s health check failed: %w", table, err)
		}
	}

	c.log.Debug("Container health check completed successfully")
	return nil
}

// Close releases the connection pool
func (c *Container) Close() error {
	c.log.Info("Closing PostgreSQL repository container...")

	if c.db == nil {
		c.log.Warn("Database connection is nil, nothing to close")
		return nil
	}

	if err := Close(c.db); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	c.db = nil

	c.log.Info("PostgreSQL repository container closed successfully")
	return nil
}

// GetDB returns the underlying database connection
func (c *Container) GetDB() *gorm.DB {
	return c.db
}

// TransactionContainer exposes the repositories bound to one open transaction
type TransactionContainer struct {
	repositories
}

// WithTransaction runs fn with repositories sharing a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (c *Container) WithTransaction(ctx context.Context, fn func(tc *TransactionContainer) error) error {
	c.log.Debug("Database transaction started")

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TransactionContainer{repositories: newRepositories(tx)})
	})
	if err != nil {
		c.log.Error("Database transaction rolled back", "error", err)
		return err
	}

	c.log.Debug("Database transaction committed successfully")
	return nil
}
