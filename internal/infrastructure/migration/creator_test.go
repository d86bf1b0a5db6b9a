package migration

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/erp/storesync/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"add sync index":     "add_sync_index",
		"Add-Remote_ID  Col": "add_remote_id_col",
		"  leading":          "leading",
		"trailing -":         "trailing",
		"café & 42":          "caf_42",
		"!!!":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeName(in), in)
	}
}

func TestCreateMigration_Sequence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "postgres")

	first, err := CreateMigration(dir, "init", "schema")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.FileExists(t, first.UpPath)
	assert.FileExists(t, first.DownPath)

	second, err := CreateMigration(dir, "Add store index", "speeds up listing")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)
	assert.Equal(t, filepath.Join(dir, "000002_add_store_index.up.sql"), second.UpPath)

	content, err := os.ReadFile(second.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- Description: speeds up listing")

	_, err = CreateMigration(dir, "???", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_b.up.sql":   {},
		"000002_b.down.sql": {},
		"000001_a.up.sql":   {},
		"README.md":         {},
		"nested/x.up.sql":   {},
	}
	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_a", "000002_b"}, names)

	names, err = ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrationsMatchAcrossDrivers(t *testing.T) {
	var sets [][]string
	for _, driver := range []string{DriverPostgres, DriverMySQL} {
		sub, err := fs.Sub(migrations.FS, driver)
		require.NoError(t, err)
		names, err := ListMigrations(sub)
		require.NoError(t, err)
		require.NotEmpty(t, names, driver)
		sets = append(sets, names)
	}
	assert.Equal(t, sets[0], sets[1])
}
