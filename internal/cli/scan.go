package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depvet/pkg/config"
	"github.com/matzehuels/depvet/pkg/license"
	"github.com/matzehuels/depvet/pkg/render"
	"github.com/matzehuels/depvet/pkg/scan"
)

// scanOpts holds the command-line flags for the scan command.
type scanOpts struct {
	configPath   string // config file (.depvet.toml by default)
	policyPath   string // optional YAML license policy overlay
	includeDev   bool   // also scan devDependencies
	refresh      bool   // bypass the registry response cache
	maxDepth     int    // override dependency_tree.max_depth (-1 keeps config)
	noTransitive bool   // direct dependencies only
	projectType  string // override project_type
	minScore     int    // override scoring.minimum_score (-1 keeps config)
	jsonOutput   bool   // emit the report as JSON instead of a table
	dotOutput    string // write a Graphviz DOT file of the tree
	svgOutput    string // render the tree to an SVG file
	detailed     bool   // include license/score lines in graph labels
	fail         bool   // exit nonzero on critical findings or low scores
	tui          bool   // browse the report interactively
}

// scanCommand creates the scan command.
//
// The single optional argument is the manifest path, defaulting to
// package.json in the working directory. The exit code reflects the
// policy: with --fail (the default), critical license findings or
// packages under scoring.minimum_score fail the command, which is how
// CI is expected to consume depvet.
func (c *CLI) scanCommand() *cobra.Command {
	opts := scanOpts{fail: true, maxDepth: -1, minScore: -1}

	cmd := &cobra.Command{
		Use:   "scan [package.json]",
		Short: "Analyze the dependency health of an npm package",
		Long: `Scan resolves the transitive dependency tree of a package.json, classifies
every license against the configured policy, and scores each package's
maintenance health.

Examples:
  depvet scan                          # package.json in the working directory
  depvet scan path/to/package.json
  depvet scan --include-dev --json
  depvet scan --project-type saas --min-score 60
  depvet scan --svg deps.svg --detailed`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifestPath := "package.json"
			if len(args) == 1 {
				manifestPath = args[0]
			}
			return c.runScan(cmd, manifestPath, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default .depvet.toml)")
	cmd.Flags().StringVar(&opts.policyPath, "policy", "", "YAML license policy overlay")
	cmd.Flags().BoolVar(&opts.includeDev, "include-dev", false, "also scan devDependencies")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the registry response cache")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", opts.maxDepth, "maximum dependency depth (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.noTransitive, "no-transitive", false, "analyze direct dependencies only")
	cmd.Flags().StringVar(&opts.projectType, "project-type", "", "override the configured project type")
	cmd.Flags().IntVar(&opts.minScore, "min-score", opts.minScore, "override scoring.minimum_score")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the full report as JSON")
	cmd.Flags().StringVar(&opts.dotOutput, "dot", "", "write the dependency graph as DOT to a file")
	cmd.Flags().StringVar(&opts.svgOutput, "svg", "", "render the dependency graph as SVG to a file")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include license and score in graph labels")
	cmd.Flags().BoolVar(&opts.fail, "fail", opts.fail, "exit nonzero on critical license findings or packages below the minimum score")
	cmd.Flags().BoolVarP(&opts.tui, "interactive", "i", false, "browse the report interactively")

	return cmd
}

func (c *CLI) runScan(cmd *cobra.Command, manifestPath string, opts *scanOpts) error {
	cfg, err := c.scanConfig(opts)
	if err != nil {
		return err
	}

	manifest, err := scan.ReadManifest(manifestPath)
	if err != nil {
		return err
	}

	scanner, err := c.newScanner(cfg, opts.refresh)
	if err != nil {
		return err
	}

	ctx := withLogger(cmd.Context(), c.Logger)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Scanning %s...", manifest.Name))
	if !opts.jsonOutput {
		spinner.Start()
	}
	prog := newProgress(c.Logger)

	report, err := scanner.Scan(ctx, manifest, opts.includeDev)
	if !opts.jsonOutput {
		spinner.Stop()
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Analyzed %d packages", report.Aggregates.AnalyzedCount))

	if err := writeArtifacts(report, opts); err != nil {
		return err
	}

	switch {
	case opts.jsonOutput:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	case opts.tui:
		if err := browseReport(report); err != nil {
			return err
		}
	default:
		printReport(report, cfg)
	}

	if opts.fail {
		return checkPolicy(report, cfg)
	}
	return nil
}

// scanConfig loads the configuration and applies flag overrides on top.
func (c *CLI) scanConfig(opts *scanOpts) (config.Config, error) {
	cfg, err := loadConfig(opts.configPath, opts.policyPath)
	if err != nil {
		return cfg, err
	}

	if opts.maxDepth >= 0 {
		cfg.DependencyTree.MaxDepth = opts.maxDepth
	}
	if opts.noTransitive {
		cfg.DependencyTree.AnalyzeTransitive = false
	}
	if opts.projectType != "" {
		cfg.ProjectType = opts.projectType
	}
	if opts.minScore >= 0 {
		cfg.Scoring.MinimumScore = opts.minScore
	}
	return cfg, cfg.Validate()
}

// checkPolicy turns policy violations into a nonzero exit code.
func checkPolicy(report *scan.Report, cfg config.Config) error {
	if n := report.Aggregates.Severities[license.SeverityCritical]; n > 0 {
		return fmt.Errorf("%d packages have critical license findings", n)
	}
	if cfg.Scoring.Enabled && report.Aggregates.BelowMinimum > 0 {
		return fmt.Errorf("%d packages scored below the minimum of %d",
			report.Aggregates.BelowMinimum, cfg.Scoring.MinimumScore)
	}
	return nil
}

// writeArtifacts writes the optional DOT and SVG outputs.
func writeArtifacts(report *scan.Report, opts *scanOpts) error {
	if report.Tree == nil && (opts.dotOutput != "" || opts.svgOutput != "") {
		printWarning("dependency tree disabled in config; skipping graph output")
		return nil
	}

	if opts.dotOutput != "" {
		dot := render.ToDOT(report, render.Options{Detailed: opts.detailed})
		if err := os.WriteFile(opts.dotOutput, []byte(dot), 0o644); err != nil {
			return fmt.Errorf("write DOT: %w", err)
		}
		printFile(opts.dotOutput)
	}

	if opts.svgOutput != "" {
		svg, err := render.RenderSVG(render.ToDOT(report, render.Options{Detailed: opts.detailed}))
		if err != nil {
			return fmt.Errorf("render SVG: %w", err)
		}
		if err := os.WriteFile(opts.svgOutput, svg, 0o644); err != nil {
			return fmt.Errorf("write SVG: %w", err)
		}
		printFile(opts.svgOutput)
	}
	return nil
}
