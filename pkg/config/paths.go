package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appDir = "tunecfg"

// GetConfigDir returns the per-user config directory:
//
//	windows: %APPDATA%\tunecfg
//	macOS:   ~/Library/Application Support/tunecfg
//	linux:   $XDG_CONFIG_HOME/tunecfg or ~/.config/tunecfg
func GetConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appDir), nil
		}
	}
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appDir), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", appDir), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appDir), nil
	default:
		return filepath.Join(home, ".config", appDir), nil
	}
}

// GetDefaultConfigPath is config.yaml inside GetConfigDir, or "" when no
// home directory is known.
func GetDefaultConfigPath() string {
	dir, err := GetConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}
