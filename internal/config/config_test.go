package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	dir := "./Managed Installs"
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"ManagedInstallsDir", cfg.ManagedInstallsDir, dir},
		{"ClientIdentifier", cfg.ClientIdentifier, "site_default"},
		{"RepoURL", cfg.RepoURL, ""},
		{"CatalogsDir", cfg.CatalogsDir, filepath.Join(dir, "catalogs")},
		{"ManifestsDir", cfg.ManifestsDir, filepath.Join(dir, "manifests")},
		{"ReceiptsPath", cfg.ReceiptsPath, filepath.Join(dir, "receipts.toml")},
		{"TelemetryPath", cfg.TelemetryPath, filepath.Join(dir, "Logs", "events.jsonl")},
		{"FetchTimeout", cfg.FetchTimeout, 5 * time.Minute},
		{"WalkInstalledDependencies", cfg.WalkInstalledDependencies, false},
		{"Verbose", cfg.Verbose, false},
		{"CacheDir", cfg.CacheDir(), filepath.Join(dir, "Cache")},
		{"SelfServePath", cfg.SelfServePath(), filepath.Join(dir, "manifests", "SelfServeManifest.toml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
	if len(cfg.Catalogs) != 0 {
		t.Errorf("Catalogs = %v, want empty", cfg.Catalogs)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "managed_installs_dir",
			envKey: "MANIFOLD_MANAGED_INSTALLS_DIR",
			envVal: "/var/lib/manifold",
			field:  func(c Config) any { return c.CatalogsDir },
			want:   filepath.Join("/var/lib/manifold", "catalogs"),
		},
		{
			name:   "repo_url",
			envKey: "MANIFOLD_REPO_URL",
			envVal: "https://munki.example.com/repo",
			field:  func(c Config) any { return c.RepoURL },
			want:   "https://munki.example.com/repo",
		},
		{
			name:   "client_identifier",
			envKey: "MANIFOLD_CLIENT_IDENTIFIER",
			envVal: "lab-mac-01",
			field:  func(c Config) any { return c.ClientIdentifier },
			want:   "lab-mac-01",
		},
		{
			name:   "fetch_timeout",
			envKey: "MANIFOLD_FETCH_TIMEOUT",
			envVal: "90s",
			field:  func(c Config) any { return c.FetchTimeout },
			want:   90 * time.Second,
		},
		{
			name:   "walk_installed_dependencies",
			envKey: "MANIFOLD_WALK_INSTALLED_DEPENDENCIES",
			envVal: "true",
			field:  func(c Config) any { return c.WalkInstalledDependencies },
			want:   true,
		},
		{
			name:   "verbose",
			envKey: "MANIFOLD_VERBOSE",
			envVal: "true",
			field:  func(c Config) any { return c.Verbose },
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			// Set env prefix so MANIFOLD_* env vars map to config keys.
			viper.SetEnvPrefix("MANIFOLD")
			viper.AutomaticEnv()

			os.Setenv(tt.envKey, tt.envVal)
			defer os.Unsetenv(tt.envKey)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			got := tt.field(cfg)
			if got != tt.want {
				t.Errorf("%s: got %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	resetViper()
	path := filepath.Join(t.TempDir(), ".manifold.yaml")
	content := `managed_installs_dir: /opt/mi
catalogs:
  - testing
  - production
catalogs_dir: /srv/repo/catalogs
fetch_timeout: 30s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"testing", "production"}, cfg.Catalogs); diff != "" {
		t.Errorf("catalogs mismatch (-want +got):\n%s", diff)
	}
	if cfg.CatalogsDir != "/srv/repo/catalogs" {
		t.Errorf("CatalogsDir = %q, want explicit value kept", cfg.CatalogsDir)
	}
	if cfg.ManifestsDir != filepath.Join("/opt/mi", "manifests") {
		t.Errorf("ManifestsDir = %q", cfg.ManifestsDir)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout = %s, want 30s", cfg.FetchTimeout)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"empty dir", "managed_installs_dir", ""},
		{"zero timeout", "fetch_timeout", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			viper.Set(tt.key, tt.val)
			if _, err := Load(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}
