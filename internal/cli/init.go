package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depvet/pkg/config"
	"github.com/matzehuels/depvet/pkg/license"
)

// initCommand creates the init command, an interactive wizard that
// writes a .depvet.toml into the working directory.
func (c *CLI) initCommand() *cobra.Command {
	force := false

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a .depvet.toml config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(defaultConfigFile); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", defaultConfigFile)
			}

			cfg, err := askConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			f, err := os.Create(defaultConfigFile)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := toml.NewEncoder(f).Encode(cfg); err != nil {
				return err
			}

			printSuccess("Wrote %s", defaultConfigFile)
			printNextStep("Run a scan", "depvet scan")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

// askConfig walks through the questions and layers the answers over the
// default configuration, so anything not asked keeps its default.
func askConfig() (config.Config, error) {
	cfg := config.Default()

	var projectType string
	if err := survey.AskOne(&survey.Select{
		Message: "Project type:",
		Options: []string{
			string(license.ProjectCommercial),
			string(license.ProjectOpenSource),
			string(license.ProjectSaaS),
			string(license.ProjectInternal),
			string(license.ProjectPersonal),
		},
		Default: cfg.ProjectType,
	}, &projectType); err != nil {
		return cfg, err
	}
	cfg.ProjectType = projectType

	if err := survey.AskOne(&survey.Input{
		Message: "Registry URL:",
		Default: cfg.Registry.URL,
	}, &cfg.Registry.URL); err != nil {
		return cfg, err
	}

	if err := survey.AskOne(&survey.Confirm{
		Message: "Check packages for known vulnerabilities (OSV)?",
		Default: cfg.Vulnerabilities.Enabled,
	}, &cfg.Vulnerabilities.Enabled); err != nil {
		return cfg, err
	}

	if err := survey.AskOne(&survey.Input{
		Message: "Minimum health score (0 disables the gate):",
		Default: fmt.Sprintf("%d", cfg.Scoring.MinimumScore),
	}, &cfg.Scoring.MinimumScore); err != nil {
		return cfg, err
	}

	var denied string
	if err := survey.AskOne(&survey.Input{
		Message: "Denied licenses (comma-separated SPDX ids or patterns like GPL-*):",
	}, &denied); err != nil {
		return cfg, err
	}
	cfg.License.Deny = append(cfg.License.Deny, splitList(denied)...)

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
