package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_TunedValues(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 5.0, cfg.Player.Correction.SnapThreshold)
	assert.Equal(t, 8.0, cfg.Vehicle.Correction.SnapThreshold)
	assert.Equal(t, 0.5, cfg.Player.Correction.MaxCorrection)
	assert.Equal(t, 1.0, cfg.Vehicle.Correction.MaxCorrection)
	assert.Equal(t, 50, cfg.Network.HistoryCapacity)
	assert.Equal(t, 100.0, cfg.Interp.MinDelayMs)
	assert.Equal(t, 100*time.Millisecond, cfg.Player.CoyoteTime)
	assert.InDelta(t, 1.0/60, cfg.Simulation.TickDt(), 1e-12)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "convoy.yaml")
	body := `
network:
  address: "10.0.0.1:9000"
  transport: kcp
  syncSpacing: 50ms
player:
  walkSpeed: 3.5
  correction:
    snapThreshold: 6
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:9000", cfg.Network.Address)
	assert.Equal(t, "kcp", cfg.Network.Transport)
	assert.Equal(t, 50*time.Millisecond, cfg.Network.SyncSpacing)
	assert.Equal(t, 3.5, cfg.Player.WalkSpeed)
	assert.Equal(t, 6.0, cfg.Player.Correction.SnapThreshold)

	// Untouched keys keep their defaults.
	assert.Equal(t, 0.05, cfg.Player.Correction.DeadZoneBase)
	assert.Equal(t, 7.0, cfg.Player.SprintSpeed)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CONVOY_NETWORK_PLAYERNAME", "envy")
	t.Setenv("CONVOY_VEHICLE_TURNRADIUS", "9")

	cfg, err := Load(filepath.Join(writeEmptyJSON(t), "convoy.json"))
	require.NoError(t, err)
	assert.Equal(t, "envy", cfg.Network.PlayerName)
	assert.Equal(t, 9.0, cfg.Vehicle.TurnRadius)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load("/nonexistent/convoy.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func writeEmptyJSON(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "convoy.json"), []byte(`{}`), 0644))
	return dir
}

type memItems map[string][]byte

func (m memItems) LoadItem(key string) ([]byte, error) { return m[key], nil }
func (m memItems) SaveItem(key string, data []byte) error {
	m[key] = data
	return nil
}

type brokenItems struct{}

func (brokenItems) LoadItem(string) ([]byte, error) { return nil, errors.New("disk gone") }
func (brokenItems) SaveItem(string, []byte) error   { return errors.New("disk gone") }

func TestSettingsStore_RoundTrip(t *testing.T) {
	store := &SettingsStore{items: memItems{}}

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)

	require.NoError(t, store.Save(SavedSettings{Address: "a:1", Transport: "tcp", PlayerName: "p"}))
	saved, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)

	cfg := Default()
	saved.Apply(&cfg)
	assert.Equal(t, "a:1", cfg.Network.Address)
	assert.Equal(t, "tcp", cfg.Network.Transport)
	assert.Equal(t, "p", cfg.Network.PlayerName)
	assert.Equal(t, *saved, Saved(cfg))
}

func TestSettingsStore_Errors(t *testing.T) {
	store := &SettingsStore{items: brokenItems{}}
	_, err := store.Load()
	assert.Error(t, err)
	assert.Error(t, store.Save(SavedSettings{}))

	store = &SettingsStore{items: memItems{settingsKey: []byte("{")}}
	_, err = store.Load()
	assert.Error(t, err)
}

func TestSavedSettings_ApplyKeepsDefaultsForEmptyFields(t *testing.T) {
	cfg := Default()
	(&SavedSettings{PlayerName: "x"}).Apply(&cfg)
	assert.Equal(t, "x", cfg.Network.PlayerName)
	assert.Equal(t, Default().Network.Address, cfg.Network.Address)

	var nilSaved *SavedSettings
	nilSaved.Apply(&cfg)
	assert.Equal(t, "x", cfg.Network.PlayerName)
}
