package render

import (
	"strings"
	"testing"

	"github.com/matzehuels/depvet/pkg/deps"
	"github.com/matzehuels/depvet/pkg/license"
	"github.com/matzehuels/depvet/pkg/scan"
	"github.com/matzehuels/depvet/pkg/score"
)

func testReport() *scan.Report {
	root := &deps.Node{Name: "app", Version: "1.0.0"}
	a := &deps.Node{Name: "a", Version: "1.0.0", Depth: 1, Parent: "app"}
	b := &deps.Node{Name: "b", Version: "2.0.0", Depth: 1, Parent: "app", IsDuplicate: true, DuplicateVersions: []string{"1.0.0", "2.0.0"}}
	loop := &deps.Node{Name: "app", Version: "1.0.0", Depth: 2, Parent: "a", IsCircular: true}
	a.Children = []*deps.Node{loop}
	root.Children = []*deps.Node{a, b}

	return &scan.Report{
		Root: "app",
		Tree: root,
		Packages: []scan.PackageRecord{
			{
				Name: "a", Version: "1.0.0",
				License: license.Analysis{License: "MIT", Severity: license.SeverityOK},
				Score:   score.HealthScore{Overall: 92, Rating: score.RatingExcellent},
			},
			{
				Name: "b", Version: "2.0.0", Deprecated: true,
				License: license.Analysis{License: "GPL-3.0", Severity: license.SeverityCritical},
				Score:   score.HealthScore{Overall: 35, Rating: score.RatingPoor},
			},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testReport(), Options{})

	if !strings.HasPrefix(dot, "digraph deps {") || !strings.HasSuffix(dot, "}\n") {
		t.Fatal("output is not a DOT digraph")
	}
	for _, want := range []string{
		`"app@1.0.0" [label="app@1.0.0"];`,
		`"app@1.0.0" -> "a@1.0.0";`,
		`"app@1.0.0" -> "b@2.0.0";`,
		`"a@1.0.0" -> "app@1.0.0";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("missing %q in:\n%s", want, dot)
		}
	}

	if !strings.Contains(dot, "fillcolor=lightcoral") {
		t.Error("critical-severity node must be filled red")
	}
	if !strings.Contains(dot, `style="rounded,filled,dashed"`) {
		t.Error("circular node must be dashed")
	}
	if !strings.Contains(dot, "color=orange") {
		t.Error("duplicate node must have an orange border")
	}
}

func TestToDOT_Detailed(t *testing.T) {
	dot := ToDOT(testReport(), Options{Detailed: true})

	for _, want := range []string{"license: MIT", "score: 92 (excellent)", "deprecated"} {
		if !strings.Contains(dot, want) {
			t.Errorf("detailed label missing %q", want)
		}
	}
}
