package config

import (
	"encoding/json"
	"fmt"

	"github.com/quasilyte/gdata"
)

const settingsKey = "settings"

// SavedSettings represents the settings data stored on disk
type SavedSettings struct {
	Address    string `json:"address"`
	Transport  string `json:"transport"`
	PlayerName string `json:"playerName"`
}

type itemStore interface {
	LoadItem(key string) ([]byte, error)
	SaveItem(key string, data []byte) error
}

// SettingsStore persists SavedSettings between runs.
type SettingsStore struct {
	items itemStore
}

// OpenSettingsStore opens the per-user data directory for appName.
func OpenSettingsStore(appName string) (*SettingsStore, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	return &SettingsStore{items: m}, nil
}

// Load returns nil with no error when nothing was saved yet.
func (s *SettingsStore) Load() (*SavedSettings, error) {
	data, err := s.items.LoadItem(settingsKey)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var settings SavedSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return &settings, nil
}

func (s *SettingsStore) Save(settings SavedSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("serialize settings: %w", err)
	}
	if err := s.items.SaveItem(settingsKey, data); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Apply copies the non-empty saved fields into cfg.
func (s *SavedSettings) Apply(cfg *Config) {
	if s == nil {
		return
	}
	if s.Address != "" {
		cfg.Network.Address = s.Address
	}
	if s.Transport != "" {
		cfg.Network.Transport = s.Transport
	}
	if s.PlayerName != "" {
		cfg.Network.PlayerName = s.PlayerName
	}
}

// Saved extracts the persisted subset of cfg.
func Saved(cfg Config) SavedSettings {
	return SavedSettings{
		Address:    cfg.Network.Address,
		Transport:  cfg.Network.Transport,
		PlayerName: cfg.Network.PlayerName,
	}
}
