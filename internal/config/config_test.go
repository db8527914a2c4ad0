package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFromFile(t *testing.T) {
	for _, key := range append(requiredEnv, "PORT", "APS_CALLBACK_URL") {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	path := filepath.Join(t.TempDir(), ".env")
	content := "APS_CLIENT_ID=client\nAPS_CLIENT_SECRET=secret\nSERVER_SESSION_SECRET=session\nPORT=3000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	env, err := LoadEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "client", env.ClientID)
	assert.Equal(t, "secret", env.ClientSecret)
	assert.Equal(t, "session", env.SessionSecret)
	assert.Equal(t, 3000, env.Port)
	assert.Equal(t, "http://localhost:3000/api/auth/callback", env.CallbackURL)
	assert.Equal(t, ":3000", env.Addr())
}

func TestLoadEnvProcessOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APS_CLIENT_ID=from-file\n"), 0o600))

	t.Setenv("APS_CLIENT_ID", "from-env")
	t.Setenv("APS_CLIENT_SECRET", "secret")
	t.Setenv("SERVER_SESSION_SECRET", "session")
	t.Setenv("PORT", "")

	env, err := LoadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", env.ClientID)
	assert.Equal(t, DEFAULT_PORT, env.Port)
}

func TestLoadEnvReportsMissing(t *testing.T) {
	t.Setenv("APS_CLIENT_ID", "client")
	t.Setenv("APS_CLIENT_SECRET", "")
	t.Setenv("SERVER_SESSION_SECRET", "")

	_, err := LoadEnv("")
	require.Error(t, err)
	assert.True(t, IsMissingEnv(err))
	assert.Contains(t, err.Error(), "APS_CLIENT_SECRET")
	assert.Contains(t, err.Error(), "SERVER_SESSION_SECRET")
	assert.NotContains(t, err.Error(), "APS_CLIENT_ID")
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	created, settings := LoadOrInitializeSettings(path)
	assert.True(t, created)
	assert.Equal(t, 50.0, settings.Heatmap.Confidence)

	settings.WWWRoot = "/srv/wwwroot"
	settings.Heatmap.Alpha = 0.5
	require.NoError(t, settings.SaveTo(path))

	created, loaded := LoadOrInitializeSettings(path)
	assert.False(t, created)
	assert.Equal(t, "/srv/wwwroot", loaded.WWWRoot)
	assert.Equal(t, 0.5, loaded.Heatmap.Alpha)
	assert.Equal(t, 2.0, loaded.Heatmap.PowerParameter)
}

func TestLoadSettingsKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"dbus": true}`), 0o644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.True(t, settings.DBus)
	assert.True(t, settings.Advertise)
	assert.Equal(t, 50.0, settings.Heatmap.Confidence)
}

func TestDBPathOverride(t *testing.T) {
	t.Setenv(DB_PATH_ENV, "/tmp/custom.sqlite")
	assert.Equal(t, "/tmp/custom.sqlite", DBPath())
}

func TestSettingsPathOverride(t *testing.T) {
	t.Setenv(SETTINGS_PATH_ENV, "/tmp/settings.json")
	assert.Equal(t, "/tmp/settings.json", DefaultSettingsPath())
}

func TestDirsFollowXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv(DB_PATH_ENV, "")

	assert.Equal(t, filepath.Join("/xdg/data", APP_DIR_NAME), DataDir())
	assert.Equal(t, filepath.Join("/xdg/config", APP_DIR_NAME), ConfigDir())
	assert.Equal(t, filepath.Join("/xdg/data", APP_DIR_NAME, DB_NAME), DBPath())
}

func TestDirsFallBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "")

	assert.Equal(t, filepath.Join(home, "."+APP_DIR_NAME), DataDir())

	require.NoError(t, os.MkdirAll(filepath.Join(home, ".config"), 0o755))
	assert.Equal(t, filepath.Join(home, ".config", APP_DIR_NAME), ConfigDir())
}

func TestLoadEnvRejectsMalformedCallbackURL(t *testing.T) {
	t.Setenv("APS_CLIENT_ID", "client")
	t.Setenv("APS_CLIENT_SECRET", "secret")
	t.Setenv("SERVER_SESSION_SECRET", "session")

	t.Setenv("APS_CALLBACK_URL", "localhost/api/auth/callback")
	_, err := LoadEnv("")
	assert.ErrorIs(t, err, ErrInvalidCallbackURL)
	assert.False(t, IsMissingEnv(err))

	t.Setenv("APS_CALLBACK_URL", "https://stonehub.example.com/api/auth/callback")
	env, err := LoadEnv("")
	require.NoError(t, err)
	assert.Equal(t, "https://stonehub.example.com/api/auth/callback", env.CallbackURL)
}
