package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"flowdeck/internal/config"
)

type ConfigCommand struct {
	stdout io.Writer
	stderr io.Writer
}

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
)

type configOutput struct {
	ConfigPath string                 `json:"config_path" toml:"config_path"`
	API        effectiveAPIConfig     `json:"api" toml:"api"`
	Feed       effectiveFeedConfig    `json:"feed" toml:"feed"`
	UI         effectiveUIConfig      `json:"ui" toml:"ui"`
	Logging    effectiveLoggingConfig `json:"logging" toml:"logging"`
	Debug      effectiveDebugConfig   `json:"debug" toml:"debug"`
	Store      effectiveStoreConfig   `json:"store" toml:"store"`
}

type effectiveAPIConfig struct {
	BaseURL         string `json:"base_url" toml:"base_url"`
	TimeoutSeconds  int    `json:"timeout_seconds" toml:"timeout_seconds"`
	TokenConfigured bool   `json:"token_configured" toml:"token_configured"`
}

type effectiveFeedConfig struct {
	Transport string `json:"transport" toml:"transport"`
}

type effectiveUIConfig struct {
	HighlightSeconds int  `json:"highlight_seconds" toml:"highlight_seconds"`
	SortDescending   bool `json:"sort_descending" toml:"sort_descending"`
}

type effectiveLoggingConfig struct {
	Level   string `json:"level" toml:"level"`
	UILogPath string `json:"ui_log_path" toml:"ui_log_path"`
}

type effectiveDebugConfig struct {
	StreamDebug bool `json:"stream_debug" toml:"stream_debug"`
}

type effectiveStoreConfig struct {
	Path string `json:"path" toml:"path"`
}

func NewConfigCommand(stdout, stderr io.Writer) *ConfigCommand {
	return &ConfigCommand{
		stdout: stdout,
		stderr: stderr,
	}
}

func (c *ConfigCommand) Run(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("default", false, "print default config values")
	format := fs.String("format", configFormatJSON, "output format: json|toml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolvedFormat, err := resolveConfigFormat(*format)
	if err != nil {
		return err
	}
	payload, err := buildConfigOutput(*defaults)
	if err != nil {
		return err
	}
	return writeConfigOutput(c.stdout, resolvedFormat, payload)
}

func buildConfigOutput(defaults bool) (configOutput, error) {
	path, err := config.CoreConfigPath()
	if err != nil {
		return configOutput{}, err
	}
	var cfg config.CoreConfig
	if defaults {
		cfg = config.DefaultCoreConfig()
	} else {
		cfg, err = config.LoadCoreConfig()
		if err != nil {
			return configOutput{}, err
		}
	}
	tokenConfigured := false
	if !defaults {
		token, err := cfg.APIToken()
		if err != nil {
			return configOutput{}, err
		}
		tokenConfigured = token != ""
	}
	storePath, err := cfg.StorePath()
	if err != nil {
		return configOutput{}, err
	}
	logPath, err := config.LogPath()
	if err != nil {
		return configOutput{}, err
	}
	return configOutput{
		ConfigPath: path,
		API: effectiveAPIConfig{
			BaseURL:         cfg.APIBaseURL(),
			TimeoutSeconds:  int(cfg.APITimeout().Seconds()),
			TokenConfigured: tokenConfigured,
		},
		Feed: effectiveFeedConfig{
			Transport: cfg.FeedTransport(),
		},
		UI: effectiveUIConfig{
			HighlightSeconds: int(cfg.HighlightDelay().Seconds()),
			SortDescending:   cfg.SortDescending(),
		},
		Logging: effectiveLoggingConfig{
			Level:   cfg.LogLevel(),
			UILogPath: logPath,
		},
		Debug: effectiveDebugConfig{
			StreamDebug: cfg.StreamDebugEnabled(),
		},
		Store: effectiveStoreConfig{
			Path: storePath,
		},
	}, nil
}

func writeConfigOutput(out io.Writer, format string, payload any) error {
	switch format {
	case configFormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	case configFormatTOML:
		data, err := toml.Marshal(payload)
		if err != nil {
			return err
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		_, err = out.Write(data)
		return err
	default:
		return errors.New("unsupported format")
	}
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatJSON:
		return configFormatJSON, nil
	case configFormatTOML:
		return configFormatTOML, nil
	default:
		return "", errors.New("invalid format: must be json or toml")
	}
}
