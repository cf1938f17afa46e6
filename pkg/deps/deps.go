// Package deps builds transitive dependency trees from registry metadata.
//
// The central type is [Builder], which expands a manifest's direct
// dependencies into a full [Node] tree through an injected [Fetcher],
// using a shared metadata cache to avoid redundant network calls. The
// builder detects circular dependencies and duplicate-version packages
// and bounds its work with a global concurrency limit, a per-fetch
// timeout, and an optional depth limit.
//
// A Builder's traversal state is scoped to one BuildTree call. Concurrent
// scans of different projects must each use their own Builder while
// sharing the same cache.
package deps

import (
	"context"
	"time"
)

const (
	// DefaultConcurrency is the global limit on in-flight registry
	// fetches during a traversal, independent of how wide any single
	// node's dependency map is.
	DefaultConcurrency = 3

	// DefaultFetchTimeout bounds each individual metadata fetch. Expiry
	// abandons only that fetch; sibling fetches are unaffected.
	DefaultFetchTimeout = 15 * time.Second
)

// VersionMetadata describes one published version of a package.
type VersionMetadata struct {
	Dependencies map[string]string `json:"dependencies,omitempty"` // name -> version range
}

// PackageMetadata is the registry record for one package. It is immutable
// once fetched and shared read-only between the tree builder and the
// analyzers.
type PackageMetadata struct {
	Name               string                     `json:"name"`
	Latest             string                     `json:"latest"` // version the "latest" tag points at
	Description        string                     `json:"description,omitempty"`
	License            string                     `json:"license,omitempty"` // declared SPDX expression, may be empty
	Deprecated         bool                       `json:"deprecated"`
	DeprecationMessage string                     `json:"deprecation_message,omitempty"`
	Repository         string                     `json:"repository,omitempty"`
	HomePage           string                     `json:"homepage,omitempty"`
	Versions           map[string]VersionMetadata `json:"versions"`       // per published version
	Time               map[string]time.Time       `json:"time,omitempty"` // publish timestamps per version
}

// DependenciesOf returns the dependency map of a published version.
// Returns nil if the version is unknown.
func (m *PackageMetadata) DependenciesOf(version string) map[string]string {
	v, ok := m.Versions[version]
	if !ok {
		return nil
	}
	return v.Dependencies
}

// PublishedAt returns the publish timestamp of a version.
func (m *PackageMetadata) PublishedAt(version string) (time.Time, bool) {
	t, ok := m.Time[version]
	return t, ok
}

// Fetcher retrieves package metadata from a registry.
//
// Implementations wrap HTTP clients for specific registries (the npm
// client in pkg/integrations/npm is the standard one). The Fetcher is
// responsible for HTTP caching, retries, and error handling.
//
// Fetch must be safe for concurrent use by multiple goroutines and must
// respect context cancellation, returning ctx.Err() when the context is
// canceled or its deadline passes.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (*PackageMetadata, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, name string) (*PackageMetadata, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, name string) (*PackageMetadata, error) {
	return f(ctx, name)
}

// Options configures dependency tree construction.
type Options struct {
	MaxDepth          int           // Maximum depth to traverse; 0 means unlimited
	AnalyzeTransitive bool          // Expand beyond direct dependencies
	DetectCircular    bool          // Flag ancestors revisited on the expansion path
	DetectDuplicates  bool          // Flag names resolved to more than one version
	StopOnCircular    bool          // Drop circular children instead of emitting terminal nodes
	Concurrency       int           // Global in-flight fetch limit (default: 3)
	FetchTimeout      time.Duration // Per-fetch timeout (default: 15s)
}

// WithDefaults returns a copy of Options with zero values replaced by
// defaults. Boolean feature toggles are left as-is; the config package
// owns their defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	return opts
}
