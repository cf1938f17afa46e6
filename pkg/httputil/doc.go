// Package httputil provides HTTP utilities for package registry clients.
//
// # Overview
//
// This package provides infrastructure used by all registry API clients:
//
//   - [Cache]: File-based HTTP response caching
//   - [Retry]: Automatic retry with exponential backoff
//
// # Caching
//
// [Cache] stores HTTP responses in the filesystem (~/.cache/depvet/)
// with configurable TTL. This dramatically speeds up repeated scans
// and reduces load on package registries.
//
// Usage:
//
//	cache, err := httputil.NewCache("", 24*time.Hour)
//	ok, _ := cache.Get("npm:lodash", &data) // Check cache
//	if !ok {
//	    data = fetchFromAPI()
//	    cache.Set("npm:lodash", data) // Store for later
//	}
//
// Cache keys should be namespaced by registry to avoid collisions.
//
// # Retry
//
// [Retry] wraps operations with automatic retry for transient failures.
// Only errors wrapped in [RetryableError] are retried; registry clients
// wrap network errors and 5xx responses, so 404s fail fast.
//
// # Configuration
//
// Default settings are suitable for most use cases:
//
//   - Cache directory: ~/.cache/depvet/
//   - Max retries: 3
//   - Base backoff: 1 second
//
// The HTTP cache can be cleared via `depvet cache clear` or by deleting
// the cache directory.
package httputil
