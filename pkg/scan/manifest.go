package scan

import (
	"encoding/json"
	"os"

	"github.com/matzehuels/depvet/pkg/errors"
)

// Manifest is the parsed root of a project under scan: its identity
// plus the declared direct dependencies.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

// DependencyMap returns the direct dependencies to scan. Dev
// dependencies are folded in only when includeDev is set; they never
// ship, so they are excluded from policy scans by default.
func (m *Manifest) DependencyMap(includeDev bool) map[string]string {
	if !includeDev {
		return m.Dependencies
	}
	all := make(map[string]string, len(m.Dependencies)+len(m.DevDependencies))
	for name, rng := range m.Dependencies {
		all[name] = rng
	}
	for name, rng := range m.DevDependencies {
		if _, declared := all[name]; !declared {
			all[name] = rng
		}
	}
	return all
}

// ReadManifest parses a package.json file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read manifest %s", path)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse manifest %s", path)
	}
	if m.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "manifest %s has no name", path)
	}
	if err := errors.ValidatePackageName(m.Name); err != nil {
		return nil, err
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
	return &m, nil
}
