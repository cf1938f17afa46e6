// Package npm provides an HTTP client for the npm registry API.
//
// # Overview
//
// This package fetches full package documents from the npm registry
// (https://registry.npmjs.org) and maps them to [deps.PackageMetadata]:
// every published version with its dependency map, publish timestamps,
// the declared license, and the deprecation marker.
//
// # Usage
//
//	client, err := npm.NewClient("", 24*time.Hour)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	meta, err := client.Fetch(ctx, "express")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(meta.Name, meta.Latest, meta.License)
//
// # Caching
//
// Responses are cached on disk to reduce load on the registry; the TTL
// is set when creating the client. The in-memory metadata cache used by
// the tree builder sits above this layer, so a cold process still
// avoids refetching packages scanned recently.
//
// # Metadata Shape Quirks
//
// The registry document predates SPDX adoption: license may be a
// string, an object, or a legacy "licenses" array; repository may be a
// string or an object; deprecated may be a message string or a bare
// boolean. The client normalizes all of these.
package npm
