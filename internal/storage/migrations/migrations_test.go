package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/community-portal/internal/realtime"
)

func TestMigrationsAreOrdered(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)

	for i, m := range all {
		assert.NotNil(t, m.Up, m.ID)
		assert.NotNil(t, m.Down, m.ID)
		if i > 0 {
			assert.Less(t, all[i-1].ID, m.ID)
		}
	}
}

func TestPending(t *testing.T) {
	all := GetMigrations()

	assert.Len(t, Pending(all, nil), len(all))
	assert.Empty(t, Pending(all, []AppliedMigration{{ID: "001"}, {ID: "002"}, {ID: "003"}, {ID: "004"}, {ID: "005"}, {ID: "006"}}))

	pending := Pending(all, []AppliedMigration{{ID: "001"}, {ID: "003"}})
	ids := make([]string, 0, len(pending))
	for _, m := range pending {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"002", "004", "005", "006"}, ids)
}

func TestTablesMatchModels(t *testing.T) {
	type tabler interface{ TableName() string }

	models := AllModels()
	tables := Tables()
	require.Len(t, tables, len(models))
	for i, model := range models {
		named, ok := model.(tabler)
		require.True(t, ok, "%T has no table name", model)
		assert.Equal(t, tables[i], named.TableName())
	}
}

func TestNotifiedTablesExcludeSessions(t *testing.T) {
	notified := NotifiedTables()
	assert.NotContains(t, notified, "sessions")
	assert.Contains(t, notified, "profiles")
	assert.Len(t, notified, len(Tables())-1)
}

func TestNotifyFunctionUsesListenerChannel(t *testing.T) {
	sql := notifyFunctionSQL()
	assert.Contains(t, sql, "pg_notify('"+realtime.Channel+"'")
	assert.NotContains(t, sql, "%s")
}

func TestProfileReferencesCoverMemberships(t *testing.T) {
	tables := Tables()
	for _, c := range profileReferences {
		assert.Contains(t, tables, c.table)
		assert.Contains(t, c.check, "REFERENCES profiles(id)")
	}
	assert.Len(t, profileReferences, 5)
}
