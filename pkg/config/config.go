// Package config loads and validates scan configuration.
//
// The primary format is TOML (.depvet.toml at the project root); an
// optional YAML policy overlay can extend the license allow/deny/warn
// lists, which keeps shareable org-wide policies separate from
// per-project settings.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/depvet/pkg/deps"
	"github.com/matzehuels/depvet/pkg/errors"
	"github.com/matzehuels/depvet/pkg/license"
	"github.com/matzehuels/depvet/pkg/score"
)

// Duration wraps time.Duration so TOML and YAML files can use strings
// like "30m" or "1h".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the full scan configuration.
type Config struct {
	ProjectType     string         `toml:"project_type"`
	Registry        RegistryConfig `toml:"registry"`
	License         LicenseConfig  `toml:"license"`
	Scoring         ScoringConfig  `toml:"scoring"`
	DependencyTree  TreeConfig     `toml:"dependency_tree"`
	Cache           CacheConfig    `toml:"cache"`
	Vulnerabilities VulnConfig     `toml:"vulnerabilities"`
}

// RegistryConfig points the metadata fetcher at a package registry.
type RegistryConfig struct {
	URL string `toml:"url"`
}

// LicenseConfig is the license policy section.
type LicenseConfig struct {
	Allow              []string `toml:"allow"`
	Deny               []string `toml:"deny"`
	Warn               []string `toml:"warn"`
	WarnOnUnknown      bool     `toml:"warn_on_unknown"`
	CheckPatentClauses bool     `toml:"check_patent_clauses"`
}

// Policy converts the section to the analyzer's policy type.
func (c LicenseConfig) Policy() license.Policy {
	return license.Policy{
		Allow:              c.Allow,
		Deny:               c.Deny,
		Warn:               c.Warn,
		WarnOnUnknown:      c.WarnOnUnknown,
		CheckPatentClauses: c.CheckPatentClauses,
	}
}

// ScoringConfig is the health-scoring section.
type ScoringConfig struct {
	Enabled      bool          `toml:"enabled"`
	MinimumScore int           `toml:"minimum_score"`
	Boosters     BoosterConfig `toml:"boosters"`
}

// BoosterConfig holds the per-dimension aggregation weights.
type BoosterConfig struct {
	Age             float64 `toml:"age"`
	Deprecation     float64 `toml:"deprecation"`
	License         float64 `toml:"license"`
	Vulnerability   float64 `toml:"vulnerability"`
	Popularity      float64 `toml:"popularity"`
	Repository      float64 `toml:"repository"`
	UpdateFrequency float64 `toml:"update_frequency"`
}

// ScoreConfig converts the section to the scorer's config type.
func (c ScoringConfig) ScoreConfig() score.Config {
	return score.Config{
		Enabled:      c.Enabled,
		MinimumScore: c.MinimumScore,
		Boosters: score.Boosters{
			Age:             c.Boosters.Age,
			Deprecation:     c.Boosters.Deprecation,
			License:         c.Boosters.License,
			Vulnerability:   c.Boosters.Vulnerability,
			Popularity:      c.Boosters.Popularity,
			Repository:      c.Boosters.Repository,
			UpdateFrequency: c.Boosters.UpdateFrequency,
		},
	}
}

// TreeConfig is the dependency-tree section.
type TreeConfig struct {
	Enabled           bool     `toml:"enabled"`
	MaxDepth          int      `toml:"max_depth"`
	AnalyzeTransitive bool     `toml:"analyze_transitive"`
	DetectCircular    bool     `toml:"detect_circular"`
	DetectDuplicates  bool     `toml:"detect_duplicates"`
	StopOnCircular    bool     `toml:"stop_on_circular"`
	Concurrency       int      `toml:"concurrency"`
	FetchTimeout      Duration `toml:"fetch_timeout"`
}

// Options converts the section to the tree builder's options.
func (c TreeConfig) Options() deps.Options {
	return deps.Options{
		MaxDepth:          c.MaxDepth,
		AnalyzeTransitive: c.AnalyzeTransitive,
		DetectCircular:    c.DetectCircular,
		DetectDuplicates:  c.DetectDuplicates,
		StopOnCircular:    c.StopOnCircular,
		Concurrency:       c.Concurrency,
		FetchTimeout:      time.Duration(c.FetchTimeout),
	}.WithDefaults()
}

// CacheConfig is the metadata-cache section.
type CacheConfig struct {
	Enabled bool     `toml:"enabled"`
	TTL     Duration `toml:"ttl"`
}

// VulnConfig is the vulnerability-lookup section.
type VulnConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ProjectType: string(license.ProjectCommercial),
		Registry:    RegistryConfig{URL: "https://registry.npmjs.org"},
		License: LicenseConfig{
			WarnOnUnknown:      true,
			CheckPatentClauses: true,
		},
		Scoring: ScoringConfig{
			Enabled: true,
			Boosters: BoosterConfig{
				Age: 1, Deprecation: 1, License: 1, Vulnerability: 1,
				Popularity: 1, Repository: 1, UpdateFrequency: 1,
			},
		},
		DependencyTree: TreeConfig{
			Enabled:           true,
			AnalyzeTransitive: true,
			DetectCircular:    true,
			DetectDuplicates:  true,
			Concurrency:       deps.DefaultConcurrency,
			FetchTimeout:      Duration(deps.DefaultFetchTimeout),
		},
		Cache: CacheConfig{Enabled: true, TTL: Duration(time.Hour)},
		Vulnerabilities: VulnConfig{
			Enabled: true,
			URL:     "https://api.osv.dev",
		},
	}
}

// Load reads a TOML configuration file, layered over [Default]. A
// missing file is not an error; the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the decoder cannot express.
func (c Config) Validate() error {
	if err := errors.ValidateProjectType(c.ProjectType); err != nil {
		return err
	}
	if c.DependencyTree.MaxDepth < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "dependency_tree.max_depth must not be negative")
	}
	if c.Scoring.MinimumScore < 0 || c.Scoring.MinimumScore > 100 {
		return errors.New(errors.ErrCodeInvalidConfig, "scoring.minimum_score must be between 0 and 100")
	}
	for name, v := range map[string]float64{
		"age":              c.Scoring.Boosters.Age,
		"deprecation":      c.Scoring.Boosters.Deprecation,
		"license":          c.Scoring.Boosters.License,
		"vulnerability":    c.Scoring.Boosters.Vulnerability,
		"popularity":       c.Scoring.Boosters.Popularity,
		"repository":       c.Scoring.Boosters.Repository,
		"update_frequency": c.Scoring.Boosters.UpdateFrequency,
	} {
		if v < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "scoring.boosters.%s must not be negative", name)
		}
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	return nil
}
