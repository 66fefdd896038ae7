package config

import (
	"encoding/json"
	"os"

	"github.com/avoronov/pasteboard/internal/flagx"
	"github.com/avoronov/pasteboard/internal/timex"
)

// jsonConfig is the DTO for JSON unmarshalling. timex.Duration lets the file
// specify durations as "5s" or as integer nanoseconds. Pointer fields
// distinguish "absent" from zero so partial config files work.
type jsonConfig struct {
	BackendURL     *string         `json:"backend_url"`
	AnonKey        *string         `json:"anon_key"`
	StateDBPath    *string         `json:"state_db_path"`
	MaxEntries     *int            `json:"max_entries"`
	FetchLimit     *int            `json:"fetch_limit"`
	CacheFreshness *timex.Duration `json:"cache_freshness"`
	DeviceName     *string         `json:"device_name"`
}

// parseJson overlays cfg with values from the JSON file named by the
// -c/-config flag. No flag means no JSON is loaded. Read or parse errors
// panic; config problems should stop the program at startup.
func parseJson(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BackendURL != nil {
		cfg.BackendURL = *jc.BackendURL
	}
	if jc.AnonKey != nil {
		cfg.AnonKey = *jc.AnonKey
	}
	if jc.StateDBPath != nil {
		cfg.StateDBPath = *jc.StateDBPath
	}
	if jc.MaxEntries != nil {
		cfg.MaxEntries = *jc.MaxEntries
	}
	if jc.FetchLimit != nil {
		cfg.FetchLimit = *jc.FetchLimit
	}
	if jc.CacheFreshness != nil {
		cfg.CacheFreshness = jc.CacheFreshness.Duration
	}
	if jc.DeviceName != nil {
		cfg.DeviceName = *jc.DeviceName
	}
}
