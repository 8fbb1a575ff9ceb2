package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".mirror"

// DataDir returns the base data directory. MIRROR_CONFIG_DIR overrides the
// default under the home directory, mainly for tests.
func DataDir() (string, error) {
	if dir := os.Getenv("MIRROR_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// TokenPath returns the path to the daemon auth token file.
func TokenPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "token"), nil
}

// StateDBPath returns the path to the bbolt app-state database.
func StateDBPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.db"), nil
}

// DaemonLogPath returns the log file used when the daemon runs detached.
func DaemonLogPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mirrord.log"), nil
}
