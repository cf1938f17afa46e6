// Package scan orchestrates a full dependency health scan.
//
// The [Scanner] ties the other analysis packages together: it builds
// the transitive dependency tree, flattens it to the set of unique
// packages, classifies every package's license, scores its health, and
// aggregates the results into a [Report]. CLI and server entry points
// both run scans through this package so behavior stays identical
// across surfaces.
package scan

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/depvet/pkg/cache"
	"github.com/matzehuels/depvet/pkg/config"
	"github.com/matzehuels/depvet/pkg/deps"
	"github.com/matzehuels/depvet/pkg/license"
	"github.com/matzehuels/depvet/pkg/observability"
	"github.com/matzehuels/depvet/pkg/score"
)

// VulnerabilitySource looks up known vulnerabilities for one package
// version. Implementations must be safe for concurrent use.
type VulnerabilitySource interface {
	Query(ctx context.Context, name, version string) (*score.VulnerabilityCounts, error)
}

// PackageRecord is the per-package outcome of a scan.
type PackageRecord struct {
	Name              string            `json:"name"`
	Version           string            `json:"version"`
	Direct            bool              `json:"direct"`
	Depth             int               `json:"depth"`
	Deprecated        bool              `json:"deprecated"`
	IsCircular        bool              `json:"is_circular"`
	IsDuplicate       bool              `json:"is_duplicate"`
	DuplicateVersions []string          `json:"duplicate_versions,omitempty"`
	License           license.Analysis  `json:"license"`
	Score             score.HealthScore `json:"score"`
}

// Aggregates are the scan-level statistics derived from the records.
type Aggregates struct {
	AverageScore  float64                  `json:"average_score"`
	Ratings       map[score.Rating]int     `json:"ratings"`
	Severities    map[license.Severity]int `json:"severities"`
	BelowMinimum  int                      `json:"below_minimum"`
	AnalyzedCount int                      `json:"analyzed_count"`
}

// Report is the complete outcome of one scan.
type Report struct {
	ID          string          `json:"id"`
	Root        string          `json:"root"`
	RootVersion string          `json:"root_version"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Summary     deps.Summary    `json:"summary"`
	Skipped     int             `json:"skipped"`
	Packages    []PackageRecord `json:"packages"`
	Aggregates  Aggregates      `json:"aggregates"`
	Tree        *deps.Node      `json:"tree,omitempty"`
}

// Scanner runs dependency health scans. It is stateless apart from the
// shared metadata cache and logger; one Scanner can serve sequential
// scans, and concurrent scans each get their own tree builder under the
// hood.
type Scanner struct {
	fetcher deps.Fetcher
	vulns   VulnerabilitySource
	cache   *deps.MetadataCache
	cfg     config.Config
	logger  *log.Logger
}

// New creates a Scanner. vulns may be nil, which disables vulnerability
// lookups regardless of configuration.
func New(fetcher deps.Fetcher, vulns VulnerabilitySource, cfg config.Config, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	c := cache.New[*deps.PackageMetadata, *deps.Node](time.Duration(cfg.Cache.TTL))
	c.SetEnabled(cfg.Cache.Enabled)

	return &Scanner{
		fetcher: fetcher,
		vulns:   vulns,
		cache:   c,
		cfg:     cfg,
		logger:  logger,
	}
}

// Cache exposes the shared metadata cache for stats reporting.
func (s *Scanner) Cache() *deps.MetadataCache { return s.cache }

// Scan analyzes one manifest and returns the full report. A scan always
// completes: failed package resolutions are tallied, not fatal.
func (s *Scanner) Scan(ctx context.Context, m *Manifest, includeDev bool) (*Report, error) {
	start := time.Now()
	observability.Scan().OnScanStart(ctx, m.Name)

	report := &Report{
		ID:          uuid.NewString(),
		Root:        m.Name,
		RootVersion: m.Version,
		StartedAt:   start,
	}

	opts := s.cfg.DependencyTree.Options()
	if !s.cfg.DependencyTree.Enabled {
		// Tree analysis off still scans the direct dependencies; it
		// just never expands below them.
		opts.AnalyzeTransitive = false
	}

	builder := deps.NewBuilder(s.fetcher, s.cache, opts)

	treeStart := time.Now()
	observability.Scan().OnTreeBuildStart(ctx, m.Name)
	root, total := builder.BuildTree(ctx, m.Name, m.Version, m.DependencyMap(includeDev))
	observability.Scan().OnTreeBuildComplete(ctx, m.Name, total, builder.Skipped(), time.Since(treeStart))

	report.Tree = root
	report.Summary = deps.Summarize(root)
	report.Skipped = builder.Skipped()

	s.logger.Info("built dependency tree",
		"root", m.Name,
		"nodes", total,
		"maxDepth", report.Summary.MaxDepth,
		"skipped", report.Skipped,
		"duration", time.Since(treeStart))

	report.Packages = s.analyze(ctx, root, m)
	report.Aggregates = aggregate(report.Packages, s.cfg.Scoring.MinimumScore)
	report.FinishedAt = time.Now()

	observability.Scan().OnScanComplete(ctx, m.Name, len(report.Packages), report.FinishedAt.Sub(start), nil)
	s.logger.Info("scan complete",
		"root", m.Name,
		"packages", len(report.Packages),
		"averageScore", report.Aggregates.AverageScore,
		"duration", report.FinishedAt.Sub(start))

	return report, nil
}

// analyze produces one record per unique package in the tree. Packages
// whose metadata cannot be recovered are dropped from the report; the
// tree summary still accounts for their nodes.
func (s *Scanner) analyze(ctx context.Context, root *deps.Node, m *Manifest) []PackageRecord {
	nodes := deps.Flatten(root)
	results := make([]*PackageRecord, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DependencyTree.Options().Concurrency)

	for i, node := range nodes {
		g.Go(func() error {
			rec, ok := s.analyzeOne(gctx, node, m)
			if !ok {
				s.logger.Debug("no metadata for package, dropping from report", "package", node.Ref())
				return nil
			}
			results[i] = rec
			return nil
		})
	}
	_ = g.Wait() // analyzeOne never returns an error

	records := make([]PackageRecord, 0, len(results))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}
	slices.SortFunc(records, func(a, b PackageRecord) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Version, b.Version)
	})
	return records
}

func (s *Scanner) analyzeOne(ctx context.Context, node *deps.Node, m *Manifest) (*PackageRecord, bool) {
	meta, err := s.metadata(ctx, node.Name)
	if err != nil {
		return nil, false
	}

	analysis := license.Analyze(node.Name, node.Version, meta.License,
		license.ProjectType(s.cfg.ProjectType), s.cfg.License.Policy())

	var counts *score.VulnerabilityCounts
	if s.cfg.Vulnerabilities.Enabled && s.vulns != nil {
		// Lookup failures degrade to "no data" per the scoring contract.
		counts, _ = s.vulns.Query(ctx, node.Name, node.Version)
	}

	publishedAt, _ := meta.PublishedAt(node.Version)
	health := score.Calculate(score.Input{
		PublishedAt:     publishedAt,
		Deprecated:      meta.Deprecated,
		License:         analysis,
		Vulnerabilities: counts,
		HasRepository:   meta.Repository != "",
	}, s.cfg.Scoring.ScoreConfig())

	observability.Scan().OnPackageAnalyzed(ctx, node.Ref(), health.Overall)

	_, declared := m.Dependencies[node.Name]
	if !declared {
		_, declared = m.DevDependencies[node.Name]
	}
	return &PackageRecord{
		Name:              node.Name,
		Version:           node.Version,
		Direct:            declared && node.Depth == 1,
		Depth:             node.Depth,
		Deprecated:        meta.Deprecated,
		IsCircular:        node.IsCircular,
		IsDuplicate:       node.IsDuplicate,
		DuplicateVersions: node.DuplicateVersions,
		License:           analysis,
		Score:             health,
	}, true
}

// metadata reads package metadata from the scan cache, falling back to
// the fetcher (whose own HTTP cache usually absorbs the call).
func (s *Scanner) metadata(ctx context.Context, name string) (*deps.PackageMetadata, error) {
	if meta, ok := s.cache.GetMetadata(name); ok {
		return meta, nil
	}
	return s.fetcher.Fetch(ctx, name)
}

func aggregate(records []PackageRecord, minimumScore int) Aggregates {
	agg := Aggregates{
		Ratings:       make(map[score.Rating]int),
		Severities:    make(map[license.Severity]int),
		AnalyzedCount: len(records),
	}
	if len(records) == 0 {
		return agg
	}

	sum := 0
	for _, r := range records {
		sum += r.Score.Overall
		agg.Ratings[r.Score.Rating]++
		agg.Severities[r.License.Severity]++
		if r.Score.Overall < minimumScore {
			agg.BelowMinimum++
		}
	}
	agg.AverageScore = float64(sum) / float64(len(records))
	return agg
}
