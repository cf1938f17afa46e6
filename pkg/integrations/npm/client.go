package npm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/depvet/pkg/deps"
	"github.com/matzehuels/depvet/pkg/integrations"
)

// Client fetches package metadata from the npm registry. It implements
// [deps.Fetcher].
type Client struct {
	*integrations.Client
	baseURL string
	refresh bool
}

// NewClient creates a registry client with an on-disk response cache.
// An empty baseURL targets the public registry.
func NewClient(baseURL string, cacheTTL time.Duration) (*Client, error) {
	cache, err := integrations.NewCache(cacheTTL)
	if err != nil {
		return nil, err
	}
	return NewClientWithCache(baseURL, cache.Namespace("npm:")), nil
}

// NewClientWithCache creates a registry client using a caller-supplied
// cache, used by tests and by callers sharing one cache across clients.
func NewClientWithCache(baseURL string, cache integrations.ResponseCache) *Client {
	if baseURL == "" {
		baseURL = "https://registry.npmjs.org"
	}
	return &Client{
		Client:  integrations.NewClient(cache, nil),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// SetRefresh makes subsequent fetches bypass the response cache.
// Fresh responses are still written back to it.
func (c *Client) SetRefresh(refresh bool) { c.refresh = refresh }

// Fetch retrieves the full registry document for a package and maps it
// to [deps.PackageMetadata].
func (c *Client) Fetch(ctx context.Context, name string) (*deps.PackageMetadata, error) {
	name = strings.TrimSpace(name)
	key := "pkg:" + name

	var meta deps.PackageMetadata
	err := c.Cached(ctx, key, c.refresh, &meta, func() error {
		return c.fetch(ctx, name, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *Client) fetch(ctx context.Context, name string, meta *deps.PackageMetadata) error {
	var data registryResponse
	if err := c.Get(ctx, c.baseURL+"/"+integrations.URLEncode(name), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: npm package %s", err, name)
		}
		return err
	}

	latest := data.DistTags.Latest
	v, ok := data.Versions[latest]
	if !ok && latest != "" {
		return fmt.Errorf("version %s not found for %s", latest, name)
	}

	*meta = deps.PackageMetadata{
		Name:        data.Name,
		Latest:      latest,
		Description: v.Description,
		License:     extractLicense(v.License, v.Licenses),
		Repository:  integrations.NormalizeRepoURL(extractField(v.Repository, "url")),
		HomePage:    v.HomePage,
		Versions:    make(map[string]deps.VersionMetadata, len(data.Versions)),
		Time:        make(map[string]time.Time, len(data.Time)),
	}
	if msg := extractField(v.Deprecated, ""); msg != "" {
		meta.Deprecated = true
		meta.DeprecationMessage = msg
	}

	for version, details := range data.Versions {
		meta.Versions[version] = deps.VersionMetadata{Dependencies: details.Dependencies}
	}
	for version, raw := range data.Time {
		// The time document mixes versions with "created"/"modified".
		if _, ok := data.Versions[version]; !ok {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			meta.Time[version] = t
		}
	}
	return nil
}

// extractLicense handles the three shapes the registry uses for license
// declarations: a plain SPDX string, a {type, url} object, and the
// legacy "licenses" array of objects.
func extractLicense(license any, licenses []licenseEntry) string {
	if s := extractField(license, "type"); s != "" {
		return s
	}
	if len(licenses) > 0 {
		ids := make([]string, 0, len(licenses))
		for _, l := range licenses {
			if l.Type != "" {
				ids = append(ids, l.Type)
			}
		}
		if len(ids) == 1 {
			return ids[0]
		}
		if len(ids) > 1 {
			return "(" + strings.Join(ids, " OR ") + ")"
		}
	}
	return ""
}

// extractField reads a string from a field that may be either a plain
// string or an object; field selects the object key, "" accepts only
// the string form (used for the deprecated marker, which npm stores as
// the deprecation message itself).
func extractField(v any, field string) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if field == "" {
			return ""
		}
		if s, ok := val[field].(string); ok {
			return s
		}
	case bool:
		// Some packages publish "deprecated": true with no message.
		if val {
			return "deprecated"
		}
	}
	return ""
}

type registryResponse struct {
	Name     string                    `json:"name"`
	DistTags distTags                  `json:"dist-tags"`
	Versions map[string]versionDetails `json:"versions"`
	Time     map[string]string         `json:"time"`
}

type distTags struct {
	Latest string `json:"latest"`
}

type versionDetails struct {
	Description  string            `json:"description"`
	License      any               `json:"license"`
	Licenses     []licenseEntry    `json:"licenses"`
	Repository   any               `json:"repository"`
	HomePage     string            `json:"homepage"`
	Deprecated   any               `json:"deprecated"`
	Dependencies map[string]string `json:"dependencies"`
}

type licenseEntry struct {
	Type string `json:"type"`
}
