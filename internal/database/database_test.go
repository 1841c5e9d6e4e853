package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_CreatesSchema(t *testing.T) {
	db, err := New(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db))
	// Running twice is a no-op.
	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "notes", "blacklisted_tokens"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestNew_EnforcesForeignKeysAndChecks(t *testing.T) {
	db, err := New(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db))

	_, err = db.Exec(`INSERT INTO notes (id, author_id, title, content, visibility, created_at, edited_at)
		VALUES ('n1', 'missing-user', 't', 'c', 'public', '2024-01-01 00:00:00', '2024-01-01 00:00:00')`)
	assert.Error(t, err, "foreign key to users must be enforced")

	_, err = db.Exec(`INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ('u1', 'alice', 'alice@example.com', 'x', '2024-01-01 00:00:00')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO notes (id, author_id, title, content, visibility, created_at, edited_at)
		VALUES ('n1', 'u1', 't', 'c', 'members', '2024-01-01 00:00:00', '2024-01-01 00:00:00')`)
	assert.Error(t, err, "visibility outside public/member must be rejected")
}

func TestNew_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nota.db")
	db, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db))
	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}
