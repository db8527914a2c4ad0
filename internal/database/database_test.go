package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAppliesMigrations(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "nested", "database.sqlite"))
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion(2), CurrentSchemaVersion(db))
	assert.True(t, db.Migrator().HasTable("selected_models"))
	assert.True(t, db.Migrator().HasTable("sessions"))

	// Re-running is a no-op.
	require.NoError(t, Migrate(db))
	assert.Equal(t, SchemaVersion(2), CurrentSchemaVersion(db))
}

func TestRollback(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "database.sqlite"))
	require.NoError(t, err)

	require.NoError(t, Rollback(db))
	assert.Equal(t, SchemaVersion(1), CurrentSchemaVersion(db))
	assert.False(t, db.Migrator().HasTable("sessions"))
	assert.True(t, db.Migrator().HasTable("selected_models"))

	require.NoError(t, Rollback(db))
	assert.Equal(t, SchemaVersion(0), CurrentSchemaVersion(db))
	assert.False(t, db.Migrator().HasTable("selected_models"))

	require.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable("selected_models"))
	assert.True(t, db.Migrator().HasTable("sessions"))
}

func TestMigrationsNewerThan(t *testing.T) {
	migrations, err := MigrationsNewerThan(0)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "1_create_selected_models", migrations[0].DirName())

	require.Len(t, migrations, 2)
	assert.Equal(t, "2_create_sessions", migrations[1].DirName())

	migrations, err = MigrationsNewerThan(2)
	require.NoError(t, err)
	assert.Empty(t, migrations)
}
