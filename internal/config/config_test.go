package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VETERANVR_DATA_DIR", dir)

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.DataDir != dir {
		t.Errorf("Expected data dir %s, got %s", dir, c.DataDir)
	}
	if c.Remote.UserAgent != "rclone/v1.73.0" {
		t.Errorf("Expected rclone user agent, got %s", c.Remote.UserAgent)
	}
	if c.Remote.Timeout != 30*time.Minute {
		t.Errorf("Expected 30m timeout, got %v", c.Remote.Timeout)
	}
	if c.Catalog.MaxAge != 4*time.Hour {
		t.Errorf("Expected 4h max age, got %v", c.Catalog.MaxAge)
	}
	if c.Installer.Timeout != 10*time.Minute {
		t.Errorf("Expected 10m installer timeout, got %v", c.Installer.Timeout)
	}
	if c.Installer.Backend != BackendADB {
		t.Errorf("Expected adb backend, got %s", c.Installer.Backend)
	}
	if c.Gate.MinFreeBytes != 5<<30 {
		t.Errorf("Expected 5GiB minimum, got %d", c.Gate.MinFreeBytes)
	}
	if c.OpLog.MaxEntries != 2000 {
		t.Errorf("Expected 2000 log entries, got %d", c.OpLog.MaxEntries)
	}
	if c.Installer.StorageRoot != filepath.Join(dir, "device") {
		t.Errorf("Expected storage root under data dir, got %s", c.Installer.StorageRoot)
	}
	if c.DownloadsDir() != filepath.Join(dir, "downloads") {
		t.Errorf("Unexpected downloads dir %s", c.DownloadsDir())
	}
	if c.OpLogPath() != filepath.Join(dir, "operation_logs.jsonl") {
		t.Errorf("Unexpected oplog path %s", c.OpLogPath())
	}
	if c.StatePath() != filepath.Join(dir, "state.json") {
		t.Errorf("Unexpected state path %s", c.StatePath())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VETERANVR_DATA_DIR", t.TempDir())
	t.Setenv("VETERANVR_REMOTE_PROBE_PARALLELISM", "8")
	t.Setenv("VETERANVR_INSTALLER_BACKEND", "LOCAL")
	t.Setenv("VETERANVR_CATALOG_MAX_AGE", "90m")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Remote.ProbeParallelism != 8 {
		t.Errorf("Expected parallelism 8, got %d", c.Remote.ProbeParallelism)
	}
	if c.Installer.Backend != BackendLocal {
		t.Errorf("Expected local backend, got %s", c.Installer.Backend)
	}
	if c.Catalog.MaxAge != 90*time.Minute {
		t.Errorf("Expected 90m, got %v", c.Catalog.MaxAge)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "veteranvr.yaml")
	content := "data_dir: " + dir + "\ninstaller:\n  backend: local\n  storage_root: /tmp/quest\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Installer.Backend != BackendLocal {
		t.Errorf("Expected local backend, got %s", c.Installer.Backend)
	}
	if c.Installer.StorageRoot != "/tmp/quest" {
		t.Errorf("Expected storage root from file, got %s", c.Installer.StorageRoot)
	}
	if c.Log.Level != "debug" {
		t.Errorf("Expected debug level, got %s", c.Log.Level)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	t.Setenv("VETERANVR_DATA_DIR", t.TempDir())
	t.Setenv("VETERANVR_INSTALLER_BACKEND", "fastboot")

	if _, err := Load(""); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}
