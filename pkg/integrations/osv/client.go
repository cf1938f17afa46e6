package osv

import (
	"context"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/matzehuels/depvet/pkg/integrations"
	"github.com/matzehuels/depvet/pkg/score"
)

const defaultBaseURL = "https://api.osv.dev"

// Client queries the OSV database for known vulnerabilities. A circuit
// breaker sits in front of the API so a degraded OSV outage makes scans
// skip vulnerability data quickly instead of serializing timeouts
// across hundreds of packages.
type Client struct {
	*integrations.Client
	baseURL   string
	ecosystem string
	breaker   *gobreaker.CircuitBreaker
}

// NewClient creates an OSV client with an on-disk response cache. An
// empty baseURL targets the public API.
func NewClient(baseURL string, cacheTTL time.Duration) (*Client, error) {
	cache, err := integrations.NewCache(cacheTTL)
	if err != nil {
		return nil, err
	}
	return NewClientWithCache(baseURL, cache.Namespace("osv:")), nil
}

// NewClientWithCache creates an OSV client using a caller-supplied cache.
func NewClientWithCache(baseURL string, cache integrations.ResponseCache) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		Client:  integrations.NewClient(cache, nil),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		// npm is the only ecosystem the scanner reads manifests for.
		ecosystem: "npm",
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "osv",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// Query returns the vulnerability counts for one package version.
// Callers should treat an error as "no data" and score the dimension
// neutrally; OSV availability must never fail a scan.
func (c *Client) Query(ctx context.Context, name, version string) (*score.VulnerabilityCounts, error) {
	key := "query:" + name + "@" + version

	var counts score.VulnerabilityCounts
	err := c.Cached(ctx, key, false, &counts, func() error {
		result, err := c.breaker.Execute(func() (any, error) {
			return c.query(ctx, name, version)
		})
		if err != nil {
			return err
		}
		counts = *result.(*score.VulnerabilityCounts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (c *Client) query(ctx context.Context, name, version string) (*score.VulnerabilityCounts, error) {
	payload := queryRequest{Version: version}
	payload.Package.Name = name
	payload.Package.Ecosystem = c.ecosystem

	var resp queryResponse
	if err := c.Post(ctx, c.baseURL+"/v1/query", payload, &resp); err != nil {
		return nil, err
	}

	counts := &score.VulnerabilityCounts{}
	for _, v := range resp.Vulns {
		switch severityOf(v) {
		case "CRITICAL":
			counts.Critical++
		case "HIGH":
			counts.High++
		case "LOW":
			counts.Low++
		default:
			counts.Moderate++
		}
	}
	return counts, nil
}

// severityOf extracts a severity tier from a vulnerability record.
// OSV entries carry it in database_specific; records without one count
// as moderate rather than being dropped.
func severityOf(v vulnerability) string {
	if s, ok := v.DatabaseSpecific["severity"].(string); ok {
		return strings.ToUpper(s)
	}
	return ""
}

type queryRequest struct {
	Version string `json:"version"`
	Package struct {
		Name      string `json:"name"`
		Ecosystem string `json:"ecosystem"`
	} `json:"package"`
}

type queryResponse struct {
	Vulns []vulnerability `json:"vulns"`
}

type vulnerability struct {
	ID               string         `json:"id"`
	Summary          string         `json:"summary"`
	DatabaseSpecific map[string]any `json:"database_specific"`
}
