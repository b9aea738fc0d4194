package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"TOWERPROOF_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("TOWERPROOF_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadDotEnv_DoesNotOverrideAndIgnoresMissing(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "test.env")
	if err := os.WriteFile(p, []byte("TOWERPROOF_TEST_A=fromfile\nTOWERPROOF_TEST_B=fromfile\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TOWERPROOF_TEST_A", "preset")
	t.Setenv("TOWERPROOF_TEST_B", "")
	os.Unsetenv("TOWERPROOF_TEST_B")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), p); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("TOWERPROOF_TEST_A"); got != "preset" {
		t.Fatalf("A=%q want preset", got)
	}
	if got := os.Getenv("TOWERPROOF_TEST_B"); got != "fromfile" {
		t.Fatalf("B=%q want fromfile", got)
	}
}

func TestLoad_DerivesIndexPath(t *testing.T) {
	t.Setenv("TOWERPROOF_DATA_DIR", "/var/towerproof")
	t.Setenv("TOWERPROOF_INDEX_PATH", "")
	t.Setenv("TOWERPROOF_PARALLEL", "0")

	e, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if e.IndexPath != "/var/towerproof/index/verdicts.sqlite" {
		t.Fatalf("IndexPath=%q", e.IndexPath)
	}
	if e.Parallel != 1 || e.AuditCount != 3 || e.MaxTicks != 200000 {
		t.Fatalf("unexpected env: %+v", e)
	}
}
