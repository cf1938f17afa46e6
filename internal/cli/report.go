package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/matzehuels/depvet/pkg/config"
	"github.com/matzehuels/depvet/pkg/license"
	"github.com/matzehuels/depvet/pkg/scan"
	"github.com/matzehuels/depvet/pkg/score"
)

// printReport renders a scan report to stdout: a summary header, the
// per-package findings table, and the aggregate statistics.
func printReport(report *scan.Report, cfg config.Config) {
	printNewline()
	fmt.Println(StyleTitle.Render(fmt.Sprintf("%s@%s", report.Root, report.RootVersion)))
	printKeyValue("packages", strconv.Itoa(report.Aggregates.AnalyzedCount))
	printKeyValue("max depth", strconv.Itoa(report.Summary.MaxDepth))
	if report.Skipped > 0 {
		printKeyValue("skipped", strconv.Itoa(report.Skipped))
	}
	if report.Summary.CircularCount > 0 {
		printKeyValue("circular", strconv.Itoa(report.Summary.CircularCount))
	}
	if report.Summary.DuplicateCount > 0 {
		printKeyValue("duplicates", strconv.Itoa(report.Summary.DuplicateCount))
	}
	printNewline()

	printPackageTable(report.Packages)
	printNewline()
	printAggregates(report.Aggregates, cfg)
}

func printPackageTable(records []scan.PackageRecord) {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.Off}},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)
	table.Header([]string{"Package", "Version", "License", "Severity", "Score", "Rating", "Flags"})

	for _, r := range records {
		table.Append([]string{
			r.Name,
			r.Version,
			r.License.License,
			severityCell(r.License.Severity),
			strconv.Itoa(r.Score.Overall),
			ratingCell(r.Score.Rating),
			strings.Join(recordFlags(r), ","),
		})
	}
	table.Render()
}

func printAggregates(agg scan.Aggregates, cfg config.Config) {
	printKeyValue("avg score", fmt.Sprintf("%.1f", agg.AverageScore))

	var parts []string
	for _, rating := range []score.Rating{
		score.RatingExcellent, score.RatingGood, score.RatingFair, score.RatingPoor,
	} {
		if n := agg.Ratings[rating]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, rating))
		}
	}
	if len(parts) > 0 {
		printKeyValue("ratings", strings.Join(parts, ", "))
	}

	if n := agg.Severities[license.SeverityCritical]; n > 0 {
		printError("%d packages with critical license findings", n)
	}
	if n := agg.Severities[license.SeverityWarning]; n > 0 {
		printWarning("%d packages with license warnings", n)
	}

	if cfg.Scoring.Enabled && agg.BelowMinimum > 0 {
		printError("%d packages below the minimum score of %d", agg.BelowMinimum, cfg.Scoring.MinimumScore)
	} else {
		printSuccess("all packages meet the configured policy")
	}
}

func recordFlags(r scan.PackageRecord) []string {
	var flags []string
	if r.Direct {
		flags = append(flags, "direct")
	}
	if r.Deprecated {
		flags = append(flags, "deprecated")
	}
	if r.IsCircular {
		flags = append(flags, "circular")
	}
	if r.IsDuplicate {
		flags = append(flags, "duplicate")
	}
	if r.License.HasPatentClause {
		flags = append(flags, "patent")
	}
	return flags
}

func severityCell(s license.Severity) string {
	switch s {
	case license.SeverityCritical:
		return styleIconError.Render(string(s))
	case license.SeverityWarning:
		return StyleWarning.Render(string(s))
	case license.SeverityInfo:
		return StyleHighlight.Render(string(s))
	default:
		return StyleSuccess.Render(string(s))
	}
}

func ratingCell(r score.Rating) string {
	switch r {
	case score.RatingPoor:
		return styleIconError.Render(string(r))
	case score.RatingFair:
		return StyleWarning.Render(string(r))
	default:
		return StyleSuccess.Render(string(r))
	}
}
