package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStore(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot_profiles.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidStore(t *testing.T) {
	path := writeStore(t, `{
		"last_profile": "Swole",
		"profiles": {
			"Swole": {"carriers": ["oscar", "molina"], "last_file_path": "ListsCompiled.txt"},
			"El Capii": {"carriers": ["blue"]}
		}
	}`)

	store, err := Load(path)
	require.NoError(t, err)

	name, p := store.Active()
	assert.Equal(t, "Swole", name)
	assert.Equal(t, []string{"oscar", "molina"}, p.Carriers)
	assert.Equal(t, "ListsCompiled.txt", p.LastFilePath)
}

func TestLoadRejectsEmptyCarriers(t *testing.T) {
	path := writeStore(t, `{
		"last_profile": "Swole",
		"profiles": {"Swole": {"carriers": []}}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestLoadRejectsMissingProfiles(t *testing.T) {
	path := writeStore(t, `{"last_profile": "Swole"}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestActiveFallsBackWhenLastProfileGone(t *testing.T) {
	path := writeStore(t, `{
		"last_profile": "Deleted",
		"profiles": {"Swole": {"carriers": ["aetna"]}}
	}`)

	store, err := Load(path)
	require.NoError(t, err)

	name, p := store.Active()
	assert.Equal(t, "Swole", name)
	assert.Equal(t, []string{"aetna"}, p.Carriers)
}

func TestSelectAndSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bot_profiles.json")

	store := DefaultStore(path, []string{"oscar", "molina", "blue"})
	require.NoError(t, store.Save())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, loaded.Select("default", "lists/august.txt"))
	require.NoError(t, loaded.Save())

	again, err := Load(path)
	require.NoError(t, err)
	name, p := again.Active()
	assert.Equal(t, "default", name)
	assert.Equal(t, "lists/august.txt", p.LastFilePath)

	assert.Error(t, again.Select("nope", ""))
}
