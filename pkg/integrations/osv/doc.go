// Package osv provides an HTTP client for the OSV vulnerability API.
//
// OSV (https://osv.dev) aggregates vulnerability advisories across
// ecosystems, including the GitHub Advisory Database entries for npm.
// The client issues one POST /v1/query per (package, version) pair and
// reduces the response to per-severity counts consumed by the health
// scorer.
//
// Lookups are optional by design: the scanner treats any error from
// this package as "no data" and scores the vulnerability dimension
// neutrally. A circuit breaker trips after repeated failures so an OSV
// outage costs a scan milliseconds, not minutes.
package osv
