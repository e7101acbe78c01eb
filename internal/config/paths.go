package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName = ".flowdeck"
	homeEnvVar = "FLOWDECK_HOME"
)

// DataDir returns the base data directory for flowdeck. FLOWDECK_HOME
// overrides the default of ~/.flowdeck.
func DataDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(homeEnvVar)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// CoreConfigPath returns the path to the TOML configuration file.
func CoreConfigPath() (string, error) {
	return dataFile("config.toml")
}

// TokenPath returns the default path of the API token file.
func TokenPath() (string, error) {
	return dataFile("token")
}

// StatePath returns the path of the bbolt database holding preferences.
func StatePath() (string, error) {
	return dataFile("state.db")
}

// LogPath returns the path of the UI log file.
func LogPath() (string, error) {
	return dataFile("flowdeck.log")
}

func dataFile(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}
