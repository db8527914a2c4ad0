package config

import (
	"os"
	"path/filepath"
)

const (
	APP_DIR_NAME      = "stone-hub"
	DB_NAME           = "database.sqlite"
	SETTINGS_NAME     = "settings.json"
	DB_PATH_ENV       = "STONE_HUB_DB_PATH"
	SETTINGS_PATH_ENV = "STONE_HUB_SETTINGS_PATH"
)

// DBPath is where the selection database lives. STONE_HUB_DB_PATH takes
// precedence over the data dir.
func DBPath() string {
	if dbPath := os.Getenv(DB_PATH_ENV); dbPath != "" {
		return dbPath
	}

	return filepath.Join(DataDir(), DB_NAME)
}

func DataDir() string {
	return appDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func ConfigDir() string {
	return appDir("XDG_CONFIG_HOME", ".config")
}

// appDir resolves the XDG directory named by xdgVar, then ~/<homeRelative>
// if it exists, then ~/.stone-hub. Without a home directory it falls back
// to the working directory.
func appDir(xdgVar, homeRelative string) string {
	if xdgHome := os.Getenv(xdgVar); xdgHome != "" {
		return filepath.Join(xdgHome, APP_DIR_NAME)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		if currentDir, err := os.Getwd(); err == nil {
			return currentDir
		}
		return "."
	}

	if _, err := os.Stat(filepath.Join(homeDir, homeRelative)); err == nil {
		return filepath.Join(homeDir, homeRelative, APP_DIR_NAME)
	}

	return filepath.Join(homeDir, "."+APP_DIR_NAME)
}
