package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/note"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "not found", err: gorm.ErrRecordNotFound, want: note.ErrNotFound},
		{name: "wrapped not found", err: fmt.Errorf("query: %w", gorm.ErrRecordNotFound), want: note.ErrNotFound},
		{name: "duplicate", err: gorm.ErrDuplicatedKey, want: common.ErrConflict},
		{name: "foreign key", err: gorm.ErrForeignKeyViolated, want: common.ErrInvalid},
		{name: "check", err: gorm.ErrCheckConstraintViolated, want: common.ErrInvalid},
		{name: "canceled", err: context.Canceled, want: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err, note.ErrNotFound)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		boom := errors.New("boom")
		assert.Same(t, boom, translate(boom, note.ErrNotFound))
	})
}

func TestValidateDatabaseConfig(t *testing.T) {
	assert.Error(t, validateDatabaseConfig(nil))

	cfg := config.Load()
	assert.NoError(t, validateDatabaseConfig(cfg))

	cfg.DB.Host = ""
	assert.ErrorContains(t, validateDatabaseConfig(cfg), "host")
}

func TestConnectRejectsIncompleteConfig(t *testing.T) {
	cfg := config.Load()
	cfg.DB.Name = ""

	db, err := Connect(cfg)
	assert.Nil(t, db)
	assert.ErrorContains(t, err, "invalid database configuration")
}

func TestAffected(t *testing.T) {
	assert.ErrorIs(t, affected(&gorm.DB{RowsAffected: 0}, note.ErrNotFound), note.ErrNotFound)
	assert.NoError(t, affected(&gorm.DB{RowsAffected: 1}, note.ErrNotFound))
	assert.ErrorIs(t, affected(&gorm.DB{Error: gorm.ErrDuplicatedKey}, note.ErrNotFound), common.ErrConflict)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, escapeLike("50% off_now"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestHintsFor(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)

	stats := &DatabaseStats{
		CollectedAt: now,
		Tables: []TableStats{
			{TableName: "profiles", LiveRows: 100, DeadRows: 5, LastAnalyzed: &recent},
			{TableName: "messages", LiveRows: 100, DeadRows: 60, LastAnalyzed: &recent},
			{TableName: "notes", LiveRows: 10},
		},
		Indexes: []IndexUsage{
			{TableName: "notes", IndexName: "idx_notes_tags", IndexScans: 0, TableScans: 5000},
			{TableName: "profiles", IndexName: "idx_profiles_skills", IndexScans: 20, TableScans: 5000},
		},
		ConnectionStats: ConnectionStats{ConnectionsPercent: 90},
	}

	hints := hintsFor(stats)

	ops := map[string][]string{}
	for _, h := range hints {
		ops[h.Operation] = append(ops[h.Operation], h.Table)
	}
	assert.Equal(t, []string{"notes"}, ops["DROP_INDEX"])
	assert.Equal(t, []string{"notes"}, ops["ANALYZE"])
	assert.Equal(t, []string{"messages"}, ops["VACUUM"])
	assert.Len(t, ops["CONNECTION_POOL"], 1)
}
