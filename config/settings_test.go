package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	assert.False(t, settings.Headless)
	assert.False(t, settings.IgnoreSSL)
	assert.Equal(t, 5.0, settings.WaitTime)
	assert.Equal(t, 5*time.Second, settings.Wait())
}

func TestStoreGetReturnsCopy(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	settings := store.Get()
	settings.Headless = true

	assert.False(t, store.Get().Headless, "mutating a returned copy must not touch the store")
}

func TestStoreSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	store.Set(Settings{Headless: true, IgnoreSSL: true, WaitTime: 7.5, TextDrugInputs: "aspirin"})

	name, err := store.Save("my_preset")
	require.NoError(t, err)
	assert.Equal(t, "my_preset", name)

	data, err := os.ReadFile(filepath.Join(dir, "my_preset.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ignore_SSL": true`)
	assert.Contains(t, string(data), `"wait_time": 7.5`)

	other := NewStore(dir, nil)
	loaded, err := other.Load("my_preset")
	require.NoError(t, err)
	assert.Equal(t, store.Get(), loaded)
	assert.Equal(t, loaded, other.Get())
}

func TestStoreSaveDefaultsName(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	name, err := store.Save("   ")
	require.NoError(t, err)
	assert.Equal(t, "default_config", name)
}

func TestStoreLoadMissingPreset(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	_, err := store.Load("nope")
	assert.Error(t, err)
}

func TestStoreAvailable(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)

	assert.Empty(t, store.Available())

	_, err := store.Save("beta")
	require.NoError(t, err)
	_, err = store.Save("alpha")
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha.json", "beta.json"}, store.Available())
}

func TestStoreRememberQuery(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	store.RememberQuery("aspirin, ibuprofen")

	assert.Equal(t, "aspirin, ibuprofen", store.Get().TextDrugInputs)
}
