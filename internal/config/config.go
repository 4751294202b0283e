// Package config loads server configuration from a YAML file with
// environment-variable fallbacks.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration.
type Config struct {
	Listen      string `yaml:"listen"`
	DBPath      string `yaml:"db_path"`
	SnapshotDir string `yaml:"snapshot_dir"`
	DiceSeed    int64  `yaml:"dice_seed"` // 0 = seed from clock

	// call_tool rate limit per session, per minute. 0 disables limiting.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:             "127.0.0.1:8090",
		DBPath:             "data/gamemaster.db",
		SnapshotDir:        "data/snapshots",
		RateLimitPerMinute: 300,
	}
}

// Load reads the config file at path, merged over defaults. A missing file is
// not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if env := os.Getenv("GAMEMASTER_LISTEN"); env != "" {
		cfg.Listen = env
	}
	if env := os.Getenv("GAMEMASTER_DB"); env != "" {
		cfg.DBPath = env
	}
	return cfg, nil
}
