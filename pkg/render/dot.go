package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/depvet/pkg/deps"
	"github.com/matzehuels/depvet/pkg/license"
	"github.com/matzehuels/depvet/pkg/scan"
)

// Options configures dependency graph rendering.
type Options struct {
	// Detailed includes license and score lines in node labels.
	// When false, only name@version is shown.
	Detailed bool
}

// ToDOT converts a scan report's dependency tree to Graphviz DOT
// format. Nodes are filled by license severity, circular nodes get a
// dashed outline, and duplicate-version nodes a bold orange border. The
// resulting DOT string can be rendered with [RenderSVG].
func ToDOT(report *scan.Report, opts Options) string {
	records := make(map[string]scan.PackageRecord, len(report.Packages))
	for _, r := range report.Packages {
		records[r.Name+"@"+r.Version] = r
	}

	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	writeNodes(&buf, report.Tree, records, opts)
	buf.WriteString("\n")
	writeEdges(&buf, report.Tree)

	buf.WriteString("}\n")
	return buf.String()
}

func writeNodes(buf *bytes.Buffer, n *deps.Node, records map[string]scan.PackageRecord, opts Options) {
	rec, found := records[n.Ref()]
	label := fmtLabel(n, rec, found && opts.Detailed)
	attrs := fmtAttrs(n, rec, found, label)
	fmt.Fprintf(buf, "  %q [%s];\n", n.Ref(), strings.Join(attrs, ", "))

	for _, c := range n.Children {
		writeNodes(buf, c, records, opts)
	}
}

func writeEdges(buf *bytes.Buffer, n *deps.Node) {
	for _, c := range n.Children {
		fmt.Fprintf(buf, "  %q -> %q;\n", n.Ref(), c.Ref())
		writeEdges(buf, c)
	}
}

func fmtLabel(n *deps.Node, rec scan.PackageRecord, detailed bool) string {
	if !detailed {
		return n.Ref()
	}

	parts := []string{
		fmt.Sprintf("license: %s", rec.License.License),
		fmt.Sprintf("score: %d (%s)", rec.Score.Overall, rec.Score.Rating),
	}
	if rec.Deprecated {
		parts = append(parts, "deprecated")
	}
	return n.Ref() + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *deps.Node, rec scan.PackageRecord, found bool, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}

	if found {
		switch rec.License.Severity {
		case license.SeverityCritical:
			attrs = append(attrs, "fillcolor=lightcoral")
		case license.SeverityWarning:
			attrs = append(attrs, "fillcolor=khaki")
		case license.SeverityInfo:
			attrs = append(attrs, "fillcolor=lightblue")
		}
	}
	if n.IsCircular {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "color=red")
	}
	if n.IsDuplicate {
		attrs = append(attrs, "color=orange", "penwidth=2")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
