package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/depvet/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	def := Default()
	if cfg.ProjectType != def.ProjectType {
		t.Errorf("ProjectType = %s, want %s", cfg.ProjectType, def.ProjectType)
	}
	if !cfg.Scoring.Enabled || !cfg.Cache.Enabled || !cfg.DependencyTree.Enabled {
		t.Error("defaults must enable scoring, cache, and tree analysis")
	}
}

func TestLoad_OverridesLayerOverDefaults(t *testing.T) {
	path := writeFile(t, ".depvet.toml", `
project_type = "saas"

[license]
deny = ["GPL-*", "AGPL-*"]

[dependency_tree]
max_depth = 4
stop_on_circular = true

[cache]
ttl = "30m"

[scoring.boosters]
license = 2.0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ProjectType != "saas" {
		t.Errorf("ProjectType = %s, want saas", cfg.ProjectType)
	}
	if len(cfg.License.Deny) != 2 {
		t.Errorf("Deny = %v, want two entries", cfg.License.Deny)
	}
	if !cfg.License.WarnOnUnknown {
		t.Error("unset warn_on_unknown must keep its default")
	}
	if cfg.DependencyTree.MaxDepth != 4 || !cfg.DependencyTree.StopOnCircular {
		t.Error("dependency_tree overrides not applied")
	}
	if time.Duration(cfg.Cache.TTL) != 30*time.Minute {
		t.Errorf("TTL = %v, want 30m", time.Duration(cfg.Cache.TTL))
	}
	if cfg.Scoring.Boosters.License != 2.0 {
		t.Errorf("license booster = %v, want 2.0", cfg.Scoring.Boosters.License)
	}
	if cfg.Scoring.Boosters.Age != 1.0 {
		t.Error("unset boosters must keep their defaults")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeFile(t, ".depvet.toml", "project_type = [broken")

	_, err := Load(path)
	if errors.GetCode(err) != errors.ErrCodeInvalidConfig {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeInvalidConfig)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults valid", mutate: func(c *Config) {}},
		{name: "unknown project type", mutate: func(c *Config) { c.ProjectType = "enterprise" }, wantErr: true},
		{name: "negative max depth", mutate: func(c *Config) { c.DependencyTree.MaxDepth = -1 }, wantErr: true},
		{name: "minimum score too high", mutate: func(c *Config) { c.Scoring.MinimumScore = 150 }, wantErr: true},
		{name: "negative booster", mutate: func(c *Config) { c.Scoring.Boosters.Age = -0.5 }, wantErr: true},
		{name: "negative ttl", mutate: func(c *Config) { c.Cache.TTL = Duration(-time.Minute) }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTreeConfigOptions(t *testing.T) {
	cfg := Default()
	opts := cfg.DependencyTree.Options()

	if opts.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", opts.Concurrency)
	}
	if opts.FetchTimeout != 15*time.Second {
		t.Errorf("FetchTimeout = %v, want 15s", opts.FetchTimeout)
	}
	if !opts.AnalyzeTransitive || !opts.DetectCircular || !opts.DetectDuplicates {
		t.Error("default options must enable transitive, circular, and duplicate analysis")
	}
}

func TestPolicyOverlay(t *testing.T) {
	path := writeFile(t, "policy.yaml", `
deny:
  - SSPL-1.0
warn:
  - LGPL-*
check_patent_clauses: false
`)

	overlay, err := LoadPolicyOverlay(path)
	if err != nil {
		t.Fatalf("LoadPolicyOverlay() error: %v", err)
	}

	cfg := Default()
	cfg.License.Deny = []string{"GPL-*"}
	overlay.Apply(&cfg)

	if len(cfg.License.Deny) != 2 || cfg.License.Deny[1] != "SSPL-1.0" {
		t.Errorf("Deny = %v, want project list plus overlay", cfg.License.Deny)
	}
	if len(cfg.License.Warn) != 1 {
		t.Errorf("Warn = %v", cfg.License.Warn)
	}
	if cfg.License.CheckPatentClauses {
		t.Error("overlay must be able to switch patent checking off")
	}
	if !cfg.License.WarnOnUnknown {
		t.Error("overlay without warn_on_unknown must not touch the setting")
	}
}

func TestPolicyOverlay_MissingFile(t *testing.T) {
	_, err := LoadPolicyOverlay(filepath.Join(t.TempDir(), "absent.yaml"))
	if errors.GetCode(err) != errors.ErrCodeFileNotFound {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeFileNotFound)
	}
}
