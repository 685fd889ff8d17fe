// Package config loads chatlink settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/omochice/chatlink/internal/socket"
)

const (
	DefaultEndpoint       = "ws://127.0.0.1:8001/ws/chat/"
	DefaultReconnectDelay = 3 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultLogLevel       = "info"
)

// Duration is a time.Duration written as a Go duration string ("3s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds client settings.
type Config struct {
	Endpoint       string   `toml:"endpoint"`
	ReconnectDelay Duration `toml:"reconnect_delay"`
	WriteTimeout   Duration `toml:"write_timeout"`
	Dialer         string   `toml:"dialer"`
	TokenFile      string   `toml:"token_file"`
	LogLevel       string   `toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Endpoint:       DefaultEndpoint,
		ReconnectDelay: Duration{DefaultReconnectDelay},
		WriteTimeout:   Duration{DefaultWriteTimeout},
		Dialer:         socket.DefaultDialer,
		TokenFile:      DefaultTokenFile(),
		LogLevel:       DefaultLogLevel,
	}
}

// DefaultPath is ~/.config/chatlink/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "chatlink.toml"
	}
	return filepath.Join(home, ".config", "chatlink", "config.toml")
}

// DefaultTokenFile is ~/.config/chatlink/session.toml.
func DefaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.toml"
	}
	return filepath.Join(home, ".config", "chatlink", "session.toml")
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	cfg.TokenFile = expandHome(cfg.TokenFile)
	return cfg, cfg.Validate()
}

// Validate checks the configuration for values the transport cannot use.
func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid endpoint %q: scheme must be ws or wss", c.Endpoint)
	}
	if c.ReconnectDelay.Duration <= 0 {
		return fmt.Errorf("reconnect_delay must be positive, got %s", c.ReconnectDelay)
	}
	if c.WriteTimeout.Duration < 0 {
		return fmt.Errorf("write_timeout must not be negative, got %s", c.WriteTimeout)
	}
	if _, err := socket.New(c.Dialer); err != nil {
		return err
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
