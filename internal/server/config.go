package server

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/uwbworks/uwbtagd/internal/sensors"
	"github.com/uwbworks/uwbtagd/internal/uwb"
)

// Config holds all daemon configuration.
type Config struct {
	// Tag selects and configures the UWB tag backend.
	Tag TagConfig `yaml:"tag" json:"tag"`

	// Freq configures the optional GPIO frequency meter peer sensor.
	Freq FreqConfig `yaml:"freq" json:"freq"`

	// Server configures the HTTP/WebSocket feed.
	Server ServerConfig `yaml:"server" json:"server"`
}

type TagConfig struct {
	Type        string `yaml:"type" json:"type"`                 // "dwm1001" or "demo"
	PortPath    string `yaml:"port_path" json:"portPath"`        // e.g. /dev/ttyACM0
	BaudRate    int    `yaml:"baud_rate" json:"baudRate"`        // default 115200
	WindowMs    int    `yaml:"window_ms" json:"windowMs"`        // response window per exchange
	IdleYieldUs int    `yaml:"idle_yield_us" json:"idleYieldUs"` // sleep when an exchange came back empty
	Debug       bool   `yaml:"debug" json:"debug"`               // per-frame debug logging
}

type FreqConfig struct {
	Enabled                 bool `yaml:"enabled" json:"enabled"`
	sensors.FreqMeterConfig `yaml:",inline" json:"config"`
}

type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr" json:"listenAddr"`
	BroadcastHz int    `yaml:"broadcast_hz" json:"broadcastHz"` // feed rate to websocket clients
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Tag: TagConfig{
			Type:        "demo",
			PortPath:    "/dev/ttyACM0",
			BaudRate:    uwb.DefaultBaudRate,
			WindowMs:    50,
			IdleYieldUs: 100,
		},
		Freq: FreqConfig{
			Enabled: false,
			FreqMeterConfig: sensors.FreqMeterConfig{
				Chip: "gpiochip0",
				Line: 4,
				Edge: "rising",
			},
		},
		Server: ServerConfig{
			ListenAddr:  ":8080",
			BroadcastHz: 20,
		},
	}
}

// LoadConfig reads config from a YAML file, then applies .env and
// environment variable overrides. Falls back to defaults if the YAML
// file is missing or malformed.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[config] no config at %s, using defaults", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("[config] error parsing %s: %v, using defaults", path, err)
		cfg = DefaultConfig()
	} else {
		log.Printf("[config] loaded from %s", path)
	}

	// Load .env from the config's directory, then the CWD.
	for _, ep := range []string{filepath.Join(filepath.Dir(path), ".env"), ".env"} {
		loadEnvFile(ep)
	}

	cfg.applyEnvOverrides()
	return cfg
}

// loadEnvFile reads a simple KEY=VALUE .env file and sets os env vars.
func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	log.Printf("[config] loading .env from %s", path)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		// Real env takes precedence over .env files.
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// applyEnvOverrides reads environment variables and overrides config
// values. Supported: TAG_TYPE, TAG_PORT, TAG_BAUD, TAG_WINDOW_MS,
// TAG_DEBUG, LISTEN_ADDR, FREQ_ENABLED, FREQ_LINE.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TAG_TYPE"); v != "" {
		c.Tag.Type = v
	}
	if v := os.Getenv("TAG_PORT"); v != "" {
		c.Tag.PortPath = v
	}
	if v := os.Getenv("TAG_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Tag.BaudRate = n
		}
	}
	if v := os.Getenv("TAG_WINDOW_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Tag.WindowMs = n
		}
	}
	if v := os.Getenv("TAG_DEBUG"); v != "" {
		c.Tag.Debug = v == "1" || v == "true" || v == "yes"
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("FREQ_ENABLED"); v != "" {
		c.Freq.Enabled = v == "1" || v == "true" || v == "yes"
	}
	if v := os.Getenv("FREQ_LINE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Freq.Line = n
		}
	}
}

// ToJSON serializes config for the API.
func (c *Config) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}
