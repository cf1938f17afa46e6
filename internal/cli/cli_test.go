package cli

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depvet/pkg/config"
	"github.com/matzehuels/depvet/pkg/scan"
)

func TestRootCommandSubcommands(t *testing.T) {
	c := New(os.Stderr, log.InfoLevel)
	root := c.RootCommand()

	want := map[string]bool{
		"scan":       false,
		"serve":      false,
		"cache":      false,
		"init":       false,
		"completion": false,
	}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("root command is missing subcommand %q", name)
		}
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	// Point at a directory with no config file.
	cfg, err := loadConfig(filepath.Join(t.TempDir(), ".depvet.toml"), "")
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if !reflect.DeepEqual(cfg, config.Default()) {
		t.Error("missing config file should yield defaults")
	}
}

func TestLoadConfigWithPolicyOverlay(t *testing.T) {
	dir := t.TempDir()

	configPath := filepath.Join(dir, ".depvet.toml")
	if err := os.WriteFile(configPath, []byte(`project_type = "saas"`), 0o644); err != nil {
		t.Fatal(err)
	}
	policyPath := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(policyPath, []byte("deny:\n  - GPL-*\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(configPath, policyPath)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.ProjectType != "saas" {
		t.Errorf("ProjectType = %q, want %q", cfg.ProjectType, "saas")
	}
	if len(cfg.License.Deny) != 1 || cfg.License.Deny[0] != "GPL-*" {
		t.Errorf("Deny = %v, want [GPL-*]", cfg.License.Deny)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single", input: "GPL-3.0", want: []string{"GPL-3.0"}},
		{name: "spaces and blanks", input: "GPL-*, AGPL-3.0, ,", want: []string{"GPL-*", "AGPL-3.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitList(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitList(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRecordFlags(t *testing.T) {
	r := scan.PackageRecord{Direct: true, Deprecated: true, IsDuplicate: true}
	got := recordFlags(r)
	want := []string{"direct", "deprecated", "duplicate"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("recordFlags() = %v, want %v", got, want)
	}

	if flags := recordFlags(scan.PackageRecord{}); flags != nil {
		t.Errorf("recordFlags(zero) = %v, want nil", flags)
	}
}
