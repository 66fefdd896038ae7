// Package config loads runtime settings for the PasteBoard client.
// Sources are layered: built-in defaults, then a JSON config file (when
// given via -c/-config), then command-line flags. Later sources win.
package config

import "time"

// Config holds runtime settings for the client.
type Config struct {
	// BackendURL is the base URL of the hosted backend service.
	BackendURL string
	// AnonKey is the public API key sent with every request.
	AnonKey string
	// StateDBPath is where persisted client state (session snapshot,
	// device id) lives.
	StateDBPath string
	// MaxEntries bounds the in-memory entry collection.
	MaxEntries int
	// FetchLimit is how many entries a history fetch asks for.
	FetchLimit int
	// CacheFreshness is how long a successful fetch is served from cache.
	CacheFreshness time.Duration
	// DeviceName overrides the detected device label when non-empty.
	DeviceName string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://127.0.0.1:54321"
	c.AnonKey = ""
	c.StateDBPath = "pasteboard.db"
	c.MaxEntries = 50
	c.FetchLimit = 50
	c.CacheFreshness = 5 * time.Second
	c.DeviceName = ""
}

// LoadConfig constructs a Config from defaults, JSON, and flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
