package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/depvet/pkg/config"
	"github.com/matzehuels/depvet/pkg/deps"
	"github.com/matzehuels/depvet/pkg/license"
	"github.com/matzehuels/depvet/pkg/score"
)

// memRegistry is an in-memory deps.Fetcher for scanner tests.
type memRegistry struct {
	packages map[string]*deps.PackageMetadata
}

func (m *memRegistry) Fetch(ctx context.Context, name string) (*deps.PackageMetadata, error) {
	if meta, ok := m.packages[name]; ok {
		return meta, nil
	}
	return nil, errors.New("not found")
}

func (m *memRegistry) add(name, version, licenseExpr string, deprecated bool, dependencies map[string]string) {
	m.packages[name] = &deps.PackageMetadata{
		Name:       name,
		Latest:     version,
		License:    licenseExpr,
		Deprecated: deprecated,
		Repository: "https://github.com/test/" + name,
		Versions:   map[string]deps.VersionMetadata{version: {Dependencies: dependencies}},
		Time:       map[string]time.Time{version: time.Now().AddDate(0, -1, 0)},
	}
}

func newMemRegistry() *memRegistry {
	return &memRegistry{packages: make(map[string]*deps.PackageMetadata)}
}

// stubVulns returns fixed counts for specific package names.
type stubVulns struct {
	mu      sync.Mutex
	byName  map[string]*score.VulnerabilityCounts
	queried []string
}

func (s *stubVulns) Query(ctx context.Context, name, version string) (*score.VulnerabilityCounts, error) {
	s.mu.Lock()
	s.queried = append(s.queried, name)
	s.mu.Unlock()
	if c, ok := s.byName[name]; ok {
		return c, nil
	}
	return &score.VulnerabilityCounts{}, nil
}

func testManifest() *Manifest {
	return &Manifest{
		Name:    "app",
		Version: "1.0.0",
		Dependencies: map[string]string{
			"healthy": "1.0.0",
			"risky":   "2.0.0",
		},
	}
}

func testScanner(t *testing.T, reg *memRegistry, vulns VulnerabilitySource) *Scanner {
	t.Helper()
	cfg := config.Default()
	return New(reg, vulns, cfg, nil)
}

func TestScan(t *testing.T) {
	reg := newMemRegistry()
	reg.add("healthy", "1.0.0", "MIT", false, map[string]string{"leaf": "1.0.0"})
	reg.add("risky", "2.0.0", "GPL-3.0", true, nil)
	reg.add("leaf", "1.0.0", "ISC", false, nil)

	// risky is abandoned: no repository, last published years ago.
	reg.packages["risky"].Repository = ""
	reg.packages["risky"].Time["2.0.0"] = time.Now().AddDate(-4, 0, 0)

	s := testScanner(t, reg, nil)
	report, err := s.Scan(context.Background(), testManifest(), false)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if report.ID == "" {
		t.Error("report must carry a scan id")
	}
	if report.Root != "app" || report.RootVersion != "1.0.0" {
		t.Errorf("root = %s@%s", report.Root, report.RootVersion)
	}
	if report.Summary.TotalNodes != 4 {
		t.Errorf("TotalNodes = %d, want 4", report.Summary.TotalNodes)
	}
	if len(report.Packages) != 3 {
		t.Fatalf("Packages = %d, want 3", len(report.Packages))
	}

	// Records are sorted by name.
	names := []string{"healthy", "leaf", "risky"}
	for i, want := range names {
		if report.Packages[i].Name != want {
			t.Fatalf("package order = %v", report.Packages)
		}
	}

	healthy := report.Packages[0]
	if !healthy.Direct || healthy.Depth != 1 {
		t.Error("healthy is a direct dependency at depth 1")
	}
	if healthy.License.Category != license.CategoryFriendly {
		t.Errorf("healthy license category = %s", healthy.License.Category)
	}
	if healthy.Score.Overall < 80 {
		t.Errorf("healthy score = %d, want >= 80", healthy.Score.Overall)
	}

	leaf := report.Packages[1]
	if leaf.Direct {
		t.Error("leaf is transitive, not direct")
	}

	risky := report.Packages[2]
	if !risky.Deprecated {
		t.Error("risky must be reported deprecated")
	}
	if risky.License.Severity != license.SeverityCritical {
		t.Errorf("risky license severity = %s", risky.License.Severity)
	}
	if risky.Score.Overall >= 60 {
		t.Errorf("risky score = %d, want < 60", risky.Score.Overall)
	}
}

func TestScan_Aggregates(t *testing.T) {
	reg := newMemRegistry()
	reg.add("healthy", "1.0.0", "MIT", false, nil)
	reg.add("risky", "2.0.0", "GPL-3.0", true, nil)
	reg.packages["risky"].Repository = ""
	reg.packages["risky"].Time["2.0.0"] = time.Now().AddDate(-4, 0, 0)

	cfg := config.Default()
	cfg.Scoring.MinimumScore = 60
	s := New(reg, nil, cfg, nil)

	report, err := s.Scan(context.Background(), testManifest(), false)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	agg := report.Aggregates
	if agg.AnalyzedCount != 2 {
		t.Errorf("AnalyzedCount = %d, want 2", agg.AnalyzedCount)
	}
	if agg.Severities[license.SeverityCritical] != 1 || agg.Severities[license.SeverityOK] != 1 {
		t.Errorf("Severities = %v", agg.Severities)
	}
	if agg.BelowMinimum != 1 {
		t.Errorf("BelowMinimum = %d, want 1", agg.BelowMinimum)
	}
	if agg.AverageScore <= 0 || agg.AverageScore >= 100 {
		t.Errorf("AverageScore = %v", agg.AverageScore)
	}
}

func TestScan_VulnerabilitiesLowerScore(t *testing.T) {
	reg := newMemRegistry()
	reg.add("healthy", "1.0.0", "MIT", false, nil)
	reg.add("risky", "2.0.0", "MIT", false, nil)

	vulns := &stubVulns{byName: map[string]*score.VulnerabilityCounts{
		"risky": {Critical: 1, High: 1},
	}}

	s := testScanner(t, reg, vulns)
	report, err := s.Scan(context.Background(), testManifest(), false)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	var healthy, risky PackageRecord
	for _, r := range report.Packages {
		switch r.Name {
		case "healthy":
			healthy = r
		case "risky":
			risky = r
		}
	}

	if risky.Score.Dimensions.Vulnerability >= healthy.Score.Dimensions.Vulnerability {
		t.Error("vulnerable package must score lower on the vulnerability dimension")
	}
	if risky.Score.Overall >= healthy.Score.Overall {
		t.Error("vulnerable package must score lower overall")
	}
}

func TestScan_VulnerabilityLookupsDisabled(t *testing.T) {
	reg := newMemRegistry()
	reg.add("healthy", "1.0.0", "MIT", false, nil)
	reg.add("risky", "2.0.0", "MIT", false, nil)

	vulns := &stubVulns{}
	cfg := config.Default()
	cfg.Vulnerabilities.Enabled = false
	s := New(reg, vulns, cfg, nil)

	if _, err := s.Scan(context.Background(), testManifest(), false); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(vulns.queried) != 0 {
		t.Errorf("vulnerability source queried %d times with lookups disabled", len(vulns.queried))
	}
}

func TestScan_SkippedPackages(t *testing.T) {
	reg := newMemRegistry()
	reg.add("healthy", "1.0.0", "MIT", false, nil)
	// "risky" is not registered: its fetch fails and the child is dropped.

	s := testScanner(t, reg, nil)
	report, err := s.Scan(context.Background(), testManifest(), false)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
	if len(report.Packages) != 1 {
		t.Errorf("Packages = %d, want 1", len(report.Packages))
	}
}

func TestScan_TreeDisabledScansDirectOnly(t *testing.T) {
	reg := newMemRegistry()
	reg.add("healthy", "1.0.0", "MIT", false, map[string]string{"leaf": "1.0.0"})
	reg.add("risky", "2.0.0", "MIT", false, nil)
	reg.add("leaf", "1.0.0", "MIT", false, nil)

	cfg := config.Default()
	cfg.DependencyTree.Enabled = false
	s := New(reg, nil, cfg, nil)

	report, err := s.Scan(context.Background(), testManifest(), false)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(report.Packages) != 2 {
		t.Errorf("Packages = %d, want direct dependencies only", len(report.Packages))
	}
}

func TestScan_IncludeDev(t *testing.T) {
	reg := newMemRegistry()
	reg.add("healthy", "1.0.0", "MIT", false, nil)
	reg.add("risky", "2.0.0", "MIT", false, nil)
	reg.add("linter", "3.0.0", "MIT", false, nil)

	m := testManifest()
	m.DevDependencies = map[string]string{"linter": "3.0.0"}

	s := testScanner(t, reg, nil)

	report, err := s.Scan(context.Background(), m, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Packages) != 2 {
		t.Errorf("without dev: Packages = %d, want 2", len(report.Packages))
	}

	report, err = s.Scan(context.Background(), m, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Packages) != 3 {
		t.Errorf("with dev: Packages = %d, want 3", len(report.Packages))
	}
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package.json")
	content := `{
		"name": "demo-app",
		"version": "2.1.0",
		"dependencies": {"express": "^4.18.0"},
		"devDependencies": {"jest": "^29.0.0"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest() error: %v", err)
	}
	if m.Name != "demo-app" || m.Version != "2.1.0" {
		t.Errorf("identity = %s@%s", m.Name, m.Version)
	}
	if len(m.DependencyMap(false)) != 1 {
		t.Errorf("DependencyMap(false) = %v", m.DependencyMap(false))
	}
	if len(m.DependencyMap(true)) != 2 {
		t.Errorf("DependencyMap(true) = %v", m.DependencyMap(true))
	}
}

func TestReadManifest_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed json", content: `{"name": `},
		{name: "missing name", content: `{"version": "1.0.0"}`},
		{name: "traversal in name", content: `{"name": "../evil"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadManifest(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadManifest_DefaultVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	if err := os.WriteFile(path, []byte(`{"name": "bare"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Version != "0.0.0" {
		t.Errorf("Version = %s, want 0.0.0 default", m.Version)
	}
}
