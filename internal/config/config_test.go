package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate error: %v", err)
	}

	if cfg.Mode != ModePaper {
		t.Fatalf("expected paper mode default, got %s", cfg.Mode)
	}
	if cfg.Symbols.Reference != "TQQQ" || cfg.Symbols.Short != "SQQQ" {
		t.Fatalf("unexpected symbol defaults: %+v", cfg.Symbols)
	}
	if cfg.Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", cfg.Quantity)
	}
	if got := cfg.TriggerTimes().Exit.String(); got != "12:59" {
		t.Fatalf("expected exit 12:59, got %s", got)
	}
	if cfg.Location().String() != "America/Los_Angeles" {
		t.Fatalf("unexpected timezone: %s", cfg.Location())
	}
}

func TestLoadReadsYAML(t *testing.T) {
	path := writeConfig(t, `
mode: paper
quantity: 3
symbols:
  reference: SPY
  long: SPY
  short: SH
triggers:
  open_capture: "09:30"
  entry: "10:00"
  exit: "15:55"
timezone: America/New_York
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if cfg.Quantity != 3 || cfg.Symbols.Reference != "SPY" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
}

func TestValidateRejectsUnorderedTriggers(t *testing.T) {
	path := writeConfig(t, `
triggers:
  open_capture: "07:00"
  entry: "06:30"
  exit: "12:59"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected trigger ordering error")
	}
}

func TestValidateRejectsEqualTriggers(t *testing.T) {
	path := writeConfig(t, `
triggers:
  open_capture: "07:00"
  entry: "07:00"
  exit: "12:59"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected trigger ordering error for equal instants")
	}
}

func TestValidateRejectsBadTimezone(t *testing.T) {
	path := writeConfig(t, "timezone: Mars/Olympus_Mons\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	path := writeConfig(t, "mode: backtest\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected mode error")
	}
}

func TestValidateRejectsBadSummaryBackend(t *testing.T) {
	path := writeConfig(t, "summary:\n  backend: parquet\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected summary backend error")
	}
}

func TestValidateCredentials(t *testing.T) {
	cfg := &Config{Mode: ModePaper}
	if err := cfg.ValidateCredentials(); err == nil {
		t.Fatalf("expected missing credentials error")
	}
	cfg.Alpaca.APIKey = "key"
	cfg.Alpaca.APISecret = "secret"
	if err := cfg.ValidateCredentials(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
