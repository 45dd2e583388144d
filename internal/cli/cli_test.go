package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Network.Workers != 2 || cfg.Network.Protocol != "phased" {
		t.Fatalf("unexpected defaults: %+v", cfg.Network)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "network:\n  workers: 5\n  protocol: async\nmetrics:\n  enabled: true\n  port: 9999\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Network.Workers != 5 || cfg.Network.Protocol != "async" {
		t.Fatalf("network not overridden: %+v", cfg.Network)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9999 {
		t.Fatalf("metrics not overridden: %+v", cfg.Metrics)
	}
}

func TestBuildCLIHasExpectedSubcommands(t *testing.T) {
	root := BuildCLI()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "step", "status"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}
