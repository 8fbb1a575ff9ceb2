package config

import (
	"errors"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const defaultDaemonAddress = "127.0.0.1:7780"

const (
	defaultRefreshIntervalMS = 80
	minRefreshIntervalMS     = 15
	defaultPageSize          = 50
	defaultUnpinThreshold    = 200
	defaultRepinThreshold    = 56
)

type Config struct {
	Daemon  DaemonConfig  `toml:"daemon"`
	Sync    SyncConfig    `toml:"sync"`
	View    ViewConfig    `toml:"view"`
	Logging LoggingConfig `toml:"logging"`
}

type DaemonConfig struct {
	Address string `toml:"address"`
}

type SyncConfig struct {
	// RefreshIntervalMS is the fixed cadence between reconciliation passes
	// while revision signals keep arriving.
	RefreshIntervalMS int `toml:"refresh_interval_ms"`
	PageSize          int `toml:"page_size"`
}

type ViewConfig struct {
	// Thresholds are in viewport rows from the bottom. Unpin is coarser than
	// repin so layout jitter near the bottom cannot flap the follow state.
	UnpinThreshold int    `toml:"unpin_threshold"`
	RepinThreshold int    `toml:"repin_threshold"`
	DefaultMode    string `toml:"default_mode"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

func Default() Config {
	return Config{
		Daemon: DaemonConfig{Address: defaultDaemonAddress},
		Sync: SyncConfig{
			RefreshIntervalMS: defaultRefreshIntervalMS,
			PageSize:          defaultPageSize,
		},
		View: ViewConfig{
			UnpinThreshold: defaultUnpinThreshold,
			RepinThreshold: defaultRepinThreshold,
			DefaultMode:    "flat",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default(), err
	}
	return loadFromPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), err
	}
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	if strings.TrimSpace(c.Daemon.Address) == "" {
		c.Daemon.Address = defaultDaemonAddress
	}
	if c.Sync.RefreshIntervalMS <= 0 {
		c.Sync.RefreshIntervalMS = defaultRefreshIntervalMS
	}
	if c.Sync.RefreshIntervalMS < minRefreshIntervalMS {
		c.Sync.RefreshIntervalMS = minRefreshIntervalMS
	}
	if c.Sync.PageSize <= 0 {
		c.Sync.PageSize = defaultPageSize
	}
	if c.View.UnpinThreshold <= 0 {
		c.View.UnpinThreshold = defaultUnpinThreshold
	}
	if c.View.RepinThreshold <= 0 {
		c.View.RepinThreshold = defaultRepinThreshold
	}
	if c.View.RepinThreshold > c.View.UnpinThreshold {
		c.View.RepinThreshold = c.View.UnpinThreshold
	}
	switch strings.ToLower(strings.TrimSpace(c.View.DefaultMode)) {
	case "grouped":
		c.View.DefaultMode = "grouped"
	default:
		c.View.DefaultMode = "flat"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	return c
}

func (c Config) DaemonAddress() string {
	addr := strings.TrimSpace(c.Daemon.Address)
	if addr == "" {
		return defaultDaemonAddress
	}
	return addr
}

func (c Config) RefreshInterval() time.Duration {
	ms := c.Sync.RefreshIntervalMS
	if ms <= 0 {
		ms = defaultRefreshIntervalMS
	}
	if ms < minRefreshIntervalMS {
		ms = minRefreshIntervalMS
	}
	return time.Duration(ms) * time.Millisecond
}
