package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/modx/errors"
)

const insertDocument = `INSERT INTO documents (collection, key, rev, body, compressed) VALUES (?, ?, ?, ?, 0)`

func TestOpenPragmas(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "modx.db"), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer db.Close()

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var foreignKeys, busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 1, foreignKeys)
	assert.Equal(t, SQLiteBusyTimeoutMS, busyTimeout)
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	db, err := Open(path, nil)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenWithMigrationsBadPath(t *testing.T) {
	db, err := OpenWithMigrations("/nonexistent/modx/dir/modx.db", nil)
	if err == nil {
		db.Close()
		t.Fatal("expected an error for an unwritable path")
	}
	assert.NotNil(t, errors.GetStack(err))
}

func TestDocumentsPrimaryKey(t *testing.T) {
	db, err := OpenWithMigrations(filepath.Join(t.TempDir(), "modx.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(insertDocument, "users", "alice", "_r1", []byte(`{}`))
	require.NoError(t, err)

	t.Run("same key in another collection", func(t *testing.T) {
		_, err := db.Exec(insertDocument, "orders", "alice", "_r2", []byte(`{}`))
		assert.NoError(t, err)
	})

	t.Run("duplicate key is a key conflict", func(t *testing.T) {
		_, err := db.Exec(insertDocument, "users", "alice", "_r3", []byte(`{}`))
		require.Error(t, err)
		assert.True(t, IsKeyConflict(err))
		assert.True(t, IsKeyConflict(errors.Wrap(err, "write users/alice")))
	})

	t.Run("closed database", func(t *testing.T) {
		closed, err := Open(filepath.Join(t.TempDir(), "closed.db"), nil)
		require.NoError(t, err)
		require.NoError(t, closed.Close())

		_, err = closed.Exec(insertDocument, "users", "bob", "_r4", []byte(`{}`))
		require.Error(t, err)
		assert.True(t, IsDatabaseClosed(err))
		assert.False(t, IsKeyConflict(err))
	})
}

func TestErrorClassification(t *testing.T) {
	assert.False(t, IsDatabaseClosed(nil))
	assert.True(t, IsDatabaseClosed(errors.Wrap(ErrDatabaseClosed, "apply")))
	assert.True(t, IsDatabaseClosed(errors.New("sql: database is closed")))
	assert.False(t, IsDatabaseClosed(errors.New("disk I/O error")))

	assert.False(t, IsKeyConflict(nil))
	assert.True(t, IsKeyConflict(errors.Wrap(ErrKeyConflict, "write")))
	assert.False(t, IsKeyConflict(errors.New("UNIQUE constraint failed")))
}
