package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultFileName = "agentworld.yaml"

// Transport names a way of subscribing to the world event bus.
type Transport string

const (
	TransportSSE       Transport = "sse"
	TransportWebSocket Transport = "websocket"
	TransportRedis     Transport = "redis"
)

type WorldConfig struct {
	// URL is the world endpoint: an http(s) SSE stream URL, a ws(s) URL or
	// a redis:// URL depending on Transport.
	URL       string    `yaml:"url"`
	Transport Transport `yaml:"transport"`
	// Channel is the pub/sub channel for the redis transport.
	Channel string `yaml:"channel"`
}

type UIConfig struct {
	// Mode selects the chat front-end: "tui" or "plain".
	Mode string `yaml:"mode"`
}

type Config struct {
	World   WorldConfig `yaml:"world"`
	UI      UIConfig    `yaml:"ui"`
	DataDir string      `yaml:"data_dir"`
	LogFile string      `yaml:"log_file"`
}

// Load reads the YAML config. A missing file is not an error: defaults
// apply and the world URL can come from AGENTWORLD_URL.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultFileName
	}
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalize re-applies defaults and validation after the caller has
// overridden fields, e.g. from command-line flags.
func (c *Config) Normalize() error {
	if c == nil {
		return errors.New("config is nil")
	}
	c.applyDefaults()
	return c.validate()
}

func (c *Config) applyDefaults() {
	if c == nil {
		return
	}
	if strings.TrimSpace(c.World.URL) == "" {
		c.World.URL = strings.TrimSpace(os.Getenv("AGENTWORLD_URL"))
	}
	if strings.TrimSpace(string(c.World.Transport)) == "" {
		c.World.Transport = transportForURL(c.World.URL)
	}
	if strings.TrimSpace(c.World.Channel) == "" {
		c.World.Channel = "agentworld:events"
	}
	if strings.TrimSpace(c.UI.Mode) == "" {
		c.UI.Mode = "tui"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir()
	}
}

func (c *Config) validate() error {
	switch c.World.Transport {
	case TransportSSE, TransportWebSocket, TransportRedis:
	default:
		return fmt.Errorf("unknown world transport: %q", c.World.Transport)
	}
	switch c.UI.Mode {
	case "tui", "plain":
	default:
		return fmt.Errorf("unknown ui mode: %q (want tui or plain)", c.UI.Mode)
	}
	return nil
}

func transportForURL(url string) Transport {
	u := strings.ToLower(strings.TrimSpace(url))
	switch {
	case strings.HasPrefix(u, "ws://"), strings.HasPrefix(u, "wss://"):
		return TransportWebSocket
	case strings.HasPrefix(u, "redis://"), strings.HasPrefix(u, "rediss://"):
		return TransportRedis
	default:
		return TransportSSE
	}
}

func defaultDataDir() string {
	if dir := strings.TrimSpace(os.Getenv("AGENTWORLD_DATA_DIR")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return ".agentworld"
	}
	return filepath.Join(home, ".agentworld")
}
