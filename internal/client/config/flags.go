package config

import (
	"flag"
	"os"
	"time"

	"github.com/avoronov/pasteboard/internal/flagx"
)

// parseFlags overlays cfg with command-line flags.
//
// Supported flags:
//
//	-a string   backend base URL
//	-k string   anon API key
//	-s string   state database path
//	-d string   device label override
//	-f int      cache freshness window in seconds
//
// Arguments are filtered to the flags handled here so other packages' flags
// do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-s", "-d", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BackendURL, "a", cfg.BackendURL, "backend base URL")
	fs.StringVar(&cfg.AnonKey, "k", cfg.AnonKey, "anon API key")
	fs.StringVar(&cfg.StateDBPath, "s", cfg.StateDBPath, "state database path")
	fs.StringVar(&cfg.DeviceName, "d", cfg.DeviceName, "device label override")
	freshness := fs.Int("f", int(cfg.CacheFreshness.Seconds()), "cache freshness window (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.CacheFreshness = time.Duration(*freshness) * time.Second
}
