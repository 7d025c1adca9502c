// Package config loads client settings through viper and derives the paths
// that default to locations under the managed installs directory.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid indicates a configuration value that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all runtime configuration for a manifold client.
// Values are populated from .manifold.yaml, MANIFOLD_* env vars, and CLI flags.
type Config struct {
	ManagedInstallsDir        string        `mapstructure:"managed_installs_dir"`
	RepoURL                   string        `mapstructure:"repo_url"`
	ClientIdentifier          string        `mapstructure:"client_identifier"`
	Catalogs                  []string      `mapstructure:"catalogs"` // overrides the manifest's list when set
	CatalogsDir               string        `mapstructure:"catalogs_dir"`
	ManifestsDir              string        `mapstructure:"manifests_dir"`
	ReceiptsPath              string        `mapstructure:"receipts_path"`
	LocalOnlyManifest         string        `mapstructure:"local_only_manifest"`
	TelemetryPath             string        `mapstructure:"telemetry_path"`
	FetchTimeout              time.Duration `mapstructure:"fetch_timeout"`
	WalkInstalledDependencies bool          `mapstructure:"walk_installed_dependencies"`
	Verbose                   bool          `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags. Directory settings
// left empty are placed under managed_installs_dir.
func Load() (Config, error) {
	viper.SetDefault("managed_installs_dir", "./Managed Installs")
	viper.SetDefault("repo_url", "")
	viper.SetDefault("client_identifier", "site_default")
	viper.SetDefault("catalogs", []string{})
	viper.SetDefault("catalogs_dir", "")
	viper.SetDefault("manifests_dir", "")
	viper.SetDefault("receipts_path", "")
	viper.SetDefault("local_only_manifest", "")
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("fetch_timeout", "5m")
	viper.SetDefault("walk_installed_dependencies", false)
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.ManagedInstallsDir == "" {
		return cfg, fmt.Errorf("%w: managed_installs_dir is empty", ErrInvalid)
	}
	if cfg.FetchTimeout <= 0 {
		return cfg, fmt.Errorf("%w: fetch_timeout must be positive, got %s", ErrInvalid, cfg.FetchTimeout)
	}

	cfg.CatalogsDir = orUnder(cfg.CatalogsDir, cfg.ManagedInstallsDir, "catalogs")
	cfg.ManifestsDir = orUnder(cfg.ManifestsDir, cfg.ManagedInstallsDir, "manifests")
	cfg.ReceiptsPath = orUnder(cfg.ReceiptsPath, cfg.ManagedInstallsDir, "receipts.toml")
	cfg.TelemetryPath = orUnder(cfg.TelemetryPath, cfg.ManagedInstallsDir, filepath.Join("Logs", "events.jsonl"))
	return cfg, nil
}

// CacheDir is where fetched installer items are kept.
func (c Config) CacheDir() string {
	return filepath.Join(c.ManagedInstallsDir, "Cache")
}

// SelfServePath is the user's self-serve selections file.
func (c Config) SelfServePath() string {
	return filepath.Join(c.ManagedInstallsDir, "manifests", "SelfServeManifest.toml")
}

func orUnder(v, dir, rel string) string {
	if v != "" {
		return v
	}
	return filepath.Join(dir, rel)
}
