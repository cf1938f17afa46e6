// Package integrations provides HTTP clients for external data sources.
//
// # Overview
//
// Each subpackage wraps one external API behind a typed client:
//
//   - npm: package metadata from the npm registry
//   - osv: known-vulnerability lookups against the OSV database
//
// The shared [Client] in this package handles the concerns common to
// all of them: response caching on disk, retry with exponential
// backoff, default headers, and observability hooks around every
// request.
//
// # Error Conventions
//
// Clients return [ErrNotFound] when a package or resource does not
// exist and [ErrNetwork] for transport-level failures. 5xx responses
// and connection errors are wrapped in [httputil.RetryableError] so the
// retry layer knows to try again; 4xx responses fail fast.
package integrations
