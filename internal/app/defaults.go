package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - AGRI_CONFIG_PATH: config file location (default: ~/.config/agri.toml)
//   - AGRI_HOME: base directory for agri data (default: ~/.local/share/agri)
func GetDefaults() (map[string]string, error) {
	configPath, err := envOrHome("AGRI_CONFIG_PATH", ".config", "agri.toml")
	if err != nil {
		return nil, err
	}

	baseDir, err := envOrHome("AGRI_HOME", ".local", "share", "agri")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"data_dir":    filepath.Join(baseDir, "data"),
	}, nil
}

// envOrHome returns the value of env if set, otherwise the path under the
// user's home directory.
func envOrHome(env string, rel ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, rel...)...), nil
}
