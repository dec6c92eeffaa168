package storage

import (
	"context"
	"fmt"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/domain/announcement"
	"github.com/gravadigital/community-portal/internal/domain/event"
	"github.com/gravadigital/community-portal/internal/domain/message"
	"github.com/gravadigital/community-portal/internal/domain/note"
	"github.com/gravadigital/community-portal/internal/domain/permanence"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/domain/project"
	"github.com/gravadigital/community-portal/internal/domain/vote"
	"github.com/gravadigital/community-portal/internal/realtime"
	"github.com/gravadigital/community-portal/internal/storage/memory"
	"github.com/gravadigital/community-portal/internal/storage/postgres"
)

// Container gives access to every repository of a storage backend
type Container interface {
	Profiles() profile.Repository
	Events() event.Repository
	Permanences() permanence.Repository
	Votes() vote.Repository
	Projects() project.Repository
	Notes() note.Repository
	Announcements() announcement.Repository
	Messages() message.Repository

	Health(ctx context.Context) error
	Close() error
}

// StorageType represents the type of storage backend
type StorageType string

const (
	// StorageTypePostgres represents PostgreSQL storage
	StorageTypePostgres StorageType = "postgres"
	// StorageTypeMemory keeps everything in process memory
	StorageTypeMemory StorageType = "memory"
)

// Factory provides a factory pattern for creating storage containers
type Factory struct {
	storageType StorageType
}

// NewFactory creates a new storage factory
func NewFactory(storageType StorageType) *Factory {
	return &Factory{
		storageType: storageType,
	}
}

// CreateContainer creates a storage container based on the configured type.
// The memory backend publishes its writes to publisher; the postgres backend
// relies on database triggers and a realtime.Listener instead.
func (f *Factory) CreateContainer(ctx context.Context, cfg *config.Config, publisher realtime.Publisher) (Container, error) {
	switch f.storageType {
	case StorageTypePostgres:
		return postgres.NewContainer(ctx, cfg)
	case StorageTypeMemory:
		return memory.New(publisher), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", f.storageType)
	}
}

// GetSupportedTypes returns a list of supported storage types
func GetSupportedTypes() []StorageType {
	return []StorageType{
		StorageTypePostgres,
		StorageTypeMemory,
	}
}

// ValidateStorageType validates if a storage type is supported
func ValidateStorageType(storageType string) (StorageType, error) {
	st := StorageType(storageType)

	for _, supported := range GetSupportedTypes() {
		if st == supported {
			return st, nil
		}
	}

	return "", fmt.Errorf("unsupported storage type: %s. Supported types: %v", storageType, GetSupportedTypes())
}
