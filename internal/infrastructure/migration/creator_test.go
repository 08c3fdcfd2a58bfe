package migration

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedded(t *testing.T) {
	migrations, err := Embedded()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, uint(1), migrations[0].Version)
	assert.Equal(t, "create_kv_entries", migrations[0].Name)
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "Add Image Archive Index")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, "add_image_archive_index", first.Name)
	assert.FileExists(t, first.UpPath)
	assert.FileExists(t, first.DownPath)

	second, err := CreateMigration(dir, "second-change")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	content, err := os.ReadFile(second.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "second_change (down)")

	listed, err := ListMigrations(os.DirFS(dir))
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	_, err = CreateMigration(dir, "!!!")
	assert.Error(t, err)
}
