package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Missing config file should fall back to defaults: %v", err)
	}
	if cfg.Port != 9000 || cfg.DBPath != "dwp.db" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dwp.yaml")
	data := "port: 8080\ndb_path: test.db\ncompany_name: Window Works\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Port != 8080 || cfg.DBPath != "test.db" || cfg.CompanyName != "Window Works" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DWP_PORT", "7070")
	t.Setenv("DWP_DB", "env.db")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Port != 7070 || cfg.DBPath != "env.db" {
		t.Errorf("Env overrides not applied: %+v", cfg)
	}
}

func TestLoadConfigBadPort(t *testing.T) {
	t.Setenv("DWP_PORT", "not-a-number")
	if _, err := loadConfig(""); err == nil {
		t.Fatal("Expected error for invalid DWP_PORT")
	}
}
