// Package config loads operator configuration for the nigran server and
// client: per-category cache TTLs, significance thresholds, tick cadence,
// and transport settings. Values come from defaults, an optional YAML file,
// and NIGRAN_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"nigran/internal/models"
)

// ConfigFileName is the default config file name.
const ConfigFileName = ".nigran.yaml"

// TTLConfig holds the per-category cache time-to-live table. A zero TTL
// means the category is fetched fresh on every snapshot.
type TTLConfig struct {
	CPU      time.Duration `mapstructure:"cpu"`
	Memory   time.Duration `mapstructure:"memory"`
	Health   time.Duration `mapstructure:"health"`
	Network  time.Duration `mapstructure:"network"`
	Services time.Duration `mapstructure:"services"`
	System   time.Duration `mapstructure:"system"`
	Disk     time.Duration `mapstructure:"disk"`
	Ports    time.Duration `mapstructure:"ports"`
}

// Thresholds holds the absolute significance thresholds for numeric fields.
// A change is significant only when it exceeds the threshold strictly.
type Thresholds struct {
	CPUPercent    float64 `mapstructure:"cpu_percent"`
	MemoryPercent float64 `mapstructure:"memory_percent"`
	HealthScore   float64 `mapstructure:"health_score"`
	DiskPercent   float64 `mapstructure:"disk_percent"`
	ProcessCPU    float64 `mapstructure:"process_cpu"`
	ProcessMemory float64 `mapstructure:"process_memory"`
	ProcessRSSMB  float64 `mapstructure:"process_rss_mb"`
}

// Config is the full operator-facing configuration.
type Config struct {
	Listen          string        `mapstructure:"listen"`
	ActivePeriod    time.Duration `mapstructure:"active_period"`
	IdlePeriod      time.Duration `mapstructure:"idle_period"`
	StalenessWindow time.Duration `mapstructure:"staleness_window"`
	WatchdogTimeout time.Duration `mapstructure:"watchdog_timeout"`
	Workers         int           `mapstructure:"workers"`
	TokenExpiry     time.Duration `mapstructure:"token_expiry"`
	SecretKey       string        `mapstructure:"secret_key"`
	TTL             TTLConfig     `mapstructure:"ttl"`
	Thresholds      Thresholds    `mapstructure:"thresholds"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "localhost:8080")
	v.SetDefault("active_period", 5*time.Second)
	v.SetDefault("idle_period", 15*time.Second)
	v.SetDefault("staleness_window", 2*time.Minute)
	v.SetDefault("watchdog_timeout", 45*time.Second)
	v.SetDefault("workers", 8)
	v.SetDefault("token_expiry", 90*24*time.Hour)

	// Volatile categories are always fetched fresh; the slow movers carry
	// TTLs matching their observed volatility.
	v.SetDefault("ttl.cpu", time.Duration(0))
	v.SetDefault("ttl.memory", time.Duration(0))
	v.SetDefault("ttl.health", time.Duration(0))
	v.SetDefault("ttl.network", time.Duration(0))
	v.SetDefault("ttl.ports", time.Duration(0))
	v.SetDefault("ttl.services", 30*time.Second)
	v.SetDefault("ttl.disk", 60*time.Second)
	v.SetDefault("ttl.system", 300*time.Second)

	v.SetDefault("thresholds.cpu_percent", 1.0)
	v.SetDefault("thresholds.memory_percent", 1.0)
	v.SetDefault("thresholds.health_score", 1.0)
	v.SetDefault("thresholds.disk_percent", 0.1)
	v.SetDefault("thresholds.process_cpu", 1.0)
	v.SetDefault("thresholds.process_memory", 1.0)
	v.SetDefault("thresholds.process_rss_mb", 1.0)
}

// Load reads config from the given path, or from .nigran.yaml in the current
// directory if path is empty. A missing file is not an error; defaults and
// environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NIGRAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if path == "" {
		path = ConfigFileName
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without touching the filesystem.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(cfg)
	return cfg
}

func (c *Config) validate() error {
	if c.ActivePeriod <= 0 || c.IdlePeriod <= 0 {
		return fmt.Errorf("tick periods must be positive (active=%v idle=%v)", c.ActivePeriod, c.IdlePeriod)
	}
	if c.StalenessWindow <= 0 {
		return fmt.Errorf("staleness_window must be positive (got %v)", c.StalenessWindow)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive (got %d)", c.Workers)
	}
	return nil
}

// TTLFor returns the configured TTL for a snapshot category. Categories with
// no table entry get a zero TTL (always fresh).
func (t TTLConfig) TTLFor(c models.Category) time.Duration {
	switch c {
	case models.CategoryCPU:
		return t.CPU
	case models.CategoryMemory:
		return t.Memory
	case models.CategoryHealth:
		return t.Health
	case models.CategoryNetwork:
		return t.Network
	case models.CategoryServices:
		return t.Services
	case models.CategorySystem:
		return t.System
	case models.CategoryDisk:
		return t.Disk
	case models.CategoryPorts:
		return t.Ports
	}
	return 0
}
