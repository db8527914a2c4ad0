package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/monorkin/stone-hub/internal/heatmap"
)

type Settings struct {
	// Directory with the browser extensions, served at "/" when set.
	WWWRoot string `json:"wwwroot"`
	// Advertise the server on the local network over mDNS.
	Advertise bool `json:"advertise"`
	// Export the selection over the D-Bus session bus.
	DBus    bool                  `json:"dbus"`
	Heatmap heatmap.ShadingConfig `json:"heatmap"`
}

// DefaultSettingsPath honours STONE_HUB_SETTINGS_PATH before the config dir.
func DefaultSettingsPath() string {
	if path := os.Getenv(SETTINGS_PATH_ENV); path != "" {
		return path
	}

	return filepath.Join(ConfigDir(), SETTINGS_NAME)
}

func DefaultSettings() *Settings {
	return &Settings{
		WWWRoot:   "",
		Advertise: true,
		DBus:      false,
		Heatmap:   heatmap.DefaultShadingConfig(),
	}
}

func LoadOrInitializeSettingsFromDefaultLocation() (bool, *Settings) {
	return LoadOrInitializeSettings(DefaultSettingsPath())
}

func LoadOrInitializeSettings(path string) (bool, *Settings) {
	if settings, err := LoadSettings(path); err == nil {
		return false, settings
	}

	return true, DefaultSettings()
}

// LoadSettings reads settings from path. Keys missing from the file keep
// their defaults.
func LoadSettings(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
