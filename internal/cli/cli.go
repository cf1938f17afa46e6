package cli

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depvet/pkg/buildinfo"
	"github.com/matzehuels/depvet/pkg/config"
	"github.com/matzehuels/depvet/pkg/integrations/npm"
	"github.com/matzehuels/depvet/pkg/integrations/osv"
	"github.com/matzehuels/depvet/pkg/scan"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "depvet"

	// defaultConfigFile is the config filename looked up in the working
	// directory when --config is not given.
	defaultConfigFile = ".depvet.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "depvet",
		Short:        "Depvet analyzes the health of npm dependency trees",
		Long:         `Depvet resolves the transitive dependency tree of an npm package, classifies every license against a configurable policy, and scores each package's maintenance health.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.scanCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.initCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Scanner Factory
// =============================================================================

// newScanner wires up a Scanner from config: an npm registry client for
// metadata and, when enabled, an OSV client for vulnerability counts.
// With refresh, registry responses bypass the on-disk cache.
func (c *CLI) newScanner(cfg config.Config, refresh bool) (*scan.Scanner, error) {
	fetcher, err := npm.NewClient(cfg.Registry.URL, time.Duration(cfg.Cache.TTL))
	if err != nil {
		return nil, err
	}
	fetcher.SetRefresh(refresh)

	var vulns scan.VulnerabilitySource
	if cfg.Vulnerabilities.Enabled {
		client, err := osv.NewClient(cfg.Vulnerabilities.URL, time.Duration(cfg.Cache.TTL))
		if err != nil {
			return nil, err
		}
		vulns = client
	}

	return scan.New(fetcher, vulns, cfg, c.Logger), nil
}

// loadConfig reads the config file, falling back to defaults when path
// is empty and no .depvet.toml exists in the working directory. An
// optional policy overlay is merged on top.
func loadConfig(configPath, policyPath string) (config.Config, error) {
	if configPath == "" {
		configPath = defaultConfigFile
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if policyPath != "" {
		overlay, err := config.LoadPolicyOverlay(policyPath)
		if err != nil {
			return config.Config{}, err
		}
		overlay.Apply(&cfg)
	}
	return cfg, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/depvet/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
