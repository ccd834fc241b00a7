package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store, func() { _ = store.Close() }
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "linkdeck.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_InvalidDirectory(t *testing.T) {
	store, err := NewStore("/dev/null/cannot/create")
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewStore_ReopenKeepsVersion(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	var count int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestStore_MigrateSkipsAppliedAndUnnumbered(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	fsys := fstest.MapFS{
		"001_initial.up.sql": {Data: []byte("this is not sql")},
		"002_extra.up.sql":   {Data: []byte("CREATE TABLE extra (id INTEGER PRIMARY KEY);")},
		"002_extra.down.sql": {Data: []byte("DROP TABLE extra;")},
		"notes_first.up.sql": {Data: []byte("also not sql")},
	}

	require.NoError(t, store.migrate(fsys))

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)

	_, err := store.db.Exec("INSERT INTO extra (id) VALUES (1)")
	assert.NoError(t, err)
}

func TestStore_MigrateReportsBadSQL(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.migrate(fstest.MapFS{
		"009_broken.up.sql": {Data: []byte("CREATE TABLE (")},
	})
	assert.ErrorContains(t, err, "009_broken.up.sql")
}

func TestStore_Accessors(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.NotNil(t, store.SchedulerStore())
	assert.NotNil(t, store.FlowJournal())
}
