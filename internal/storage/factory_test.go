package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/storage/memory"
	"github.com/gravadigital/community-portal/internal/storage/postgres"
)

var (
	_ Container = (*memory.Store)(nil)
	_ Container = (*postgres.Container)(nil)
)

func TestValidateStorageType(t *testing.T) {
	tests := []struct {
		input   string
		want    StorageType
		wantErr bool
	}{
		{input: "postgres", want: StorageTypePostgres},
		{input: "memory", want: StorageTypeMemory},
		{input: "mongo", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ValidateStorageType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateMemoryContainer(t *testing.T) {
	container, err := NewFactory(StorageTypeMemory).CreateContainer(context.Background(), &config.Config{}, nil)
	require.NoError(t, err)
	defer container.Close()

	assert.NoError(t, container.Health(context.Background()))
	assert.NotNil(t, container.Profiles())
	assert.NotNil(t, container.Messages())
}

func TestCreateUnknownContainer(t *testing.T) {
	_, err := NewFactory("mongo").CreateContainer(context.Background(), &config.Config{}, nil)
	assert.ErrorContains(t, err, "unsupported storage type")
}
