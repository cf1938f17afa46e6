package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/depvet/pkg/errors"
)

// PolicyOverlay is a shareable license policy fragment, typically an
// org-wide YAML file checked into a central repo. List entries are
// appended to the project's own lists; the boolean switches override
// only when present.
type PolicyOverlay struct {
	Allow              []string `yaml:"allow"`
	Deny               []string `yaml:"deny"`
	Warn               []string `yaml:"warn"`
	WarnOnUnknown      *bool    `yaml:"warn_on_unknown"`
	CheckPatentClauses *bool    `yaml:"check_patent_clauses"`
}

// LoadPolicyOverlay reads a YAML policy overlay file.
func LoadPolicyOverlay(path string) (PolicyOverlay, error) {
	var overlay PolicyOverlay

	data, err := os.ReadFile(path)
	if err != nil {
		return overlay, errors.Wrap(errors.ErrCodeFileNotFound, err, "read policy %s", path)
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return overlay, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse policy %s", path)
	}
	return overlay, nil
}

// Apply merges the overlay into a configuration.
func (p PolicyOverlay) Apply(cfg *Config) {
	cfg.License.Allow = append(cfg.License.Allow, p.Allow...)
	cfg.License.Deny = append(cfg.License.Deny, p.Deny...)
	cfg.License.Warn = append(cfg.License.Warn, p.Warn...)
	if p.WarnOnUnknown != nil {
		cfg.License.WarnOnUnknown = *p.WarnOnUnknown
	}
	if p.CheckPatentClauses != nil {
		cfg.License.CheckPatentClauses = *p.CheckPatentClauses
	}
}
