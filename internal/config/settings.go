package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultAPIBaseURL       = "http://127.0.0.1:8080"
	defaultAPITimeout       = 10
	defaultHighlightSeconds = 5

	FeedTransportNDJSON    = "ndjson"
	FeedTransportWebSocket = "websocket"
)

type CoreConfig struct {
	API     CoreAPIConfig     `toml:"api"`
	Feed    CoreFeedConfig    `toml:"feed"`
	UI      CoreUIConfig      `toml:"ui"`
	Logging CoreLoggingConfig `toml:"logging"`
	Debug   CoreDebugConfig   `toml:"debug"`
	Store   CoreStoreConfig   `toml:"store"`
}

type CoreAPIConfig struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TokenPath      string `toml:"token_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type CoreFeedConfig struct {
	Transport string `toml:"transport"`
}

type CoreUIConfig struct {
	HighlightSeconds int  `toml:"highlight_seconds"`
	SortDescending   bool `toml:"sort_descending"`
}

type CoreLoggingConfig struct {
	Level string `toml:"level"`
}

type CoreDebugConfig struct {
	StreamDebug bool `toml:"stream_debug"`
}

type CoreStoreConfig struct {
	Path string `toml:"path"`
}

func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		API: CoreAPIConfig{
			BaseURL:        defaultAPIBaseURL,
			TimeoutSeconds: defaultAPITimeout,
		},
		Feed: CoreFeedConfig{
			Transport: FeedTransportNDJSON,
		},
		UI: CoreUIConfig{
			HighlightSeconds: defaultHighlightSeconds,
		},
		Logging: CoreLoggingConfig{
			Level: "info",
		},
	}
}

func LoadCoreConfig() (CoreConfig, error) {
	path, err := CoreConfigPath()
	if err != nil {
		return CoreConfig{}, err
	}
	return loadCoreConfigFromPath(path)
}

func (c CoreConfig) APIBaseURL() string {
	raw := strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if raw == "" {
		return defaultAPIBaseURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	if _, err := url.Parse(raw); err != nil {
		return defaultAPIBaseURL
	}
	return raw
}

func (c CoreConfig) APITimeout() time.Duration {
	seconds := c.API.TimeoutSeconds
	if seconds <= 0 {
		seconds = defaultAPITimeout
	}
	return time.Duration(seconds) * time.Second
}

// APIToken returns the inline token when set, otherwise the contents of the
// token file. A missing token file is not an error; the API may be open.
func (c CoreConfig) APIToken() (string, error) {
	if token := strings.TrimSpace(c.API.Token); token != "" {
		return token, nil
	}
	path := strings.TrimSpace(c.API.TokenPath)
	var err error
	if path == "" {
		path, err = TokenPath()
	} else {
		path, err = resolveConfigPath(path)
	}
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (c CoreConfig) FeedTransport() string {
	switch strings.ToLower(strings.TrimSpace(c.Feed.Transport)) {
	case FeedTransportWebSocket, "ws":
		return FeedTransportWebSocket
	default:
		return FeedTransportNDJSON
	}
}

func (c CoreConfig) HighlightDelay() time.Duration {
	seconds := c.UI.HighlightSeconds
	if seconds <= 0 {
		seconds = defaultHighlightSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (c CoreConfig) SortDescending() bool {
	return c.UI.SortDescending
}

func (c CoreConfig) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c CoreConfig) StreamDebugEnabled() bool {
	if strings.TrimSpace(os.Getenv("FLOWDECK_STREAM_DEBUG")) == "1" {
		return true
	}
	return c.Debug.StreamDebug
}

func (c CoreConfig) StorePath() (string, error) {
	path := strings.TrimSpace(c.Store.Path)
	if path == "" {
		return StatePath()
	}
	return resolveConfigPath(path)
}

func loadCoreConfigFromPath(path string) (CoreConfig, error) {
	cfg := DefaultCoreConfig()
	if err := readTOML(path, &cfg); err != nil {
		return CoreConfig{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}
