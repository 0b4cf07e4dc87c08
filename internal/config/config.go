// Package config loads viewer and server settings.
//
// Settings come from, in increasing priority: built-in defaults, a YAML
// file, environment variables, and command-line flags (applied by the
// caller after Load).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport selects how the viewer fetches frames.
type Transport string

const (
	TransportHTTP Transport = "http"
	TransportWS   Transport = "ws"
)

// ParseTransport validates a transport name.
func ParseTransport(s string) (Transport, error) {
	switch Transport(strings.ToLower(s)) {
	case TransportHTTP, "":
		return TransportHTTP, nil
	case TransportWS, "websocket":
		return TransportWS, nil
	}
	return "", fmt.Errorf("unknown transport %q (valid: http, ws)", s)
}

// Viewer holds the settings shared by the terminal and window viewers.
type Viewer struct {
	Server         string        `yaml:"server"`
	Transport      Transport     `yaml:"transport"`
	LogFile        string        `yaml:"log_file"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Follow         bool          `yaml:"follow"`
}

// Server holds the replay server settings.
type Server struct {
	Addr     string `yaml:"addr"`
	Replays  string `yaml:"replays"`
	Database string `yaml:"database"`
}

// File is the on-disk layout: one section per program.
type File struct {
	Viewer Viewer `yaml:"viewer"`
	Server Server `yaml:"server"`
}

const (
	DefaultServer = "http://127.0.0.1:8000"
	DefaultAddr   = "127.0.0.1:8000"
)

// Defaults returns the built-in settings.
func Defaults() File {
	return File{
		Viewer: Viewer{
			Server:    DefaultServer,
			Transport: TransportHTTP,
			LogFile:   filepath.Join(os.TempDir(), "amv.log"),
			// Zero means no client-side timeout: a hung fetch stays pending
			// until a newer request supersedes it.
			RequestTimeout: 0,
		},
		Server: Server{
			Addr:    DefaultAddr,
			Replays: "replays",
		},
	}
}

// Path returns the config file location: $AMV_CONFIG, else
// <user config dir>/amv/config.yaml.
func Path() (string, error) {
	if env := os.Getenv("AMV_CONFIG"); env != "" {
		return env, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "amv", "config.yaml"), nil
}

// Load reads the config file at path over the defaults, then applies the
// environment. A missing file is not an error.
func Load(path string) (File, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	if _, err := ParseTransport(string(cfg.Viewer.Transport)); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads the file reported by Path.
func LoadDefault() (File, error) {
	path, err := Path()
	if err != nil {
		cfg := Defaults()
		applyEnv(&cfg)
		return cfg, nil
	}
	return Load(path)
}

func applyEnv(cfg *File) {
	if v := os.Getenv("AMV_SERVER"); v != "" {
		cfg.Viewer.Server = v
	}
	if v := os.Getenv("AMV_TRANSPORT"); v != "" {
		cfg.Viewer.Transport = Transport(v)
	}
	if v := os.Getenv("AMV_REPLAYS"); v != "" {
		cfg.Server.Replays = v
	}
	if v := os.Getenv("AMV_DATABASE"); v != "" {
		cfg.Server.Database = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Server.Addr = ":" + v
	}
}

// Write stores cfg at path, creating parent directories.
func Write(path string, cfg File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
