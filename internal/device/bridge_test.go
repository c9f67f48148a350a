package device

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mol-cyberwhip/veteranVR/internal/installer"
	"github.com/mol-cyberwhip/veteranVR/internal/oplog"
)

// silentSession accepts commits and never reports back
type silentSession struct{}

func (silentSession) CommitInstall(ctx context.Context, operationID, packageName, apkPath string) error {
	return nil
}

func (silentSession) CommitUninstall(ctx context.Context, operationID, packageName string) error {
	return nil
}

func newLocalBridge(t *testing.T) (*Bridge, *Local, string, *oplog.Log) {
	t.Helper()
	root := t.TempDir()
	waiters := NewWaiters()
	local := NewLocal(root, waiters)
	log, _ := oplog.Open("", 0, nil)
	return NewBridge(local, local, waiters, log, time.Second), local, root, log
}

func writeGame(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "base.apk"), []byte("apk"), 0644)
	os.MkdirAll(filepath.Join(dir, "com.pkg"), 0755)
	os.WriteFile(filepath.Join(dir, "com.pkg", "main.obb"), []byte("obb"), 0644)
	if script != "" {
		os.WriteFile(filepath.Join(dir, "install.txt"), []byte(script), 0644)
	}
	return dir
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestBridgeInstallFallback(t *testing.T) {
	b, _, root, log := newLocalBridge(t)
	stale := filepath.Join(root, "sdcard", "Android", "obb", "com.pkg", "old.obb")
	os.MkdirAll(filepath.Dir(stale), 0755)
	os.WriteFile(stale, []byte("old"), 0644)

	report, err := b.Install(context.Background(), "op-1", writeGame(t, ""), "com.pkg")
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if report.ExecutedActions != 2 {
		t.Errorf("Expected 2 executed actions, got %d", report.ExecutedActions)
	}

	if !exists(filepath.Join(root, "data", "app", "com.pkg", "base.apk")) {
		t.Error("Expected APK to be installed")
	}
	if !exists(filepath.Join(root, "sdcard", "Android", "obb", "com.pkg", "main.obb")) {
		t.Error("Expected OBB to be copied")
	}
	if exists(stale) {
		t.Error("Expected OBB copy to replace existing contents")
	}
	if len(log.ForOperation("op-1")) != 2 {
		t.Errorf("Expected 2 log entries, got %d", len(log.ForOperation("op-1")))
	}
}

func TestBridgeInstallScript(t *testing.T) {
	b, _, root, _ := newLocalBridge(t)
	script := "adb install base.apk\nadb push com.pkg /sdcard/Android/obb/\nadb shell mkdir -p /sdcard/Android/data/com.pkg/files\nadb shell rm -rf /sdcard/Download\n"

	report, err := b.Install(context.Background(), "op-2", writeGame(t, script), "com.pkg")
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if report.ExecutedActions != 3 || len(report.Warnings) != 1 {
		t.Errorf("Unexpected report: %+v", report)
	}
	if !exists(filepath.Join(root, "sdcard", "Android", "data", "com.pkg", "files")) {
		t.Error("Expected allowed mkdir to run")
	}
}

func TestBridgeInstallNothingExecuted(t *testing.T) {
	b, _, _, _ := newLocalBridge(t)
	_, err := b.Install(context.Background(), "op-3", writeGame(t, "adb shell rm -rf /sdcard\n"), "com.pkg")
	if err == nil {
		t.Error("Expected failure when no action runs")
	}

	_, err = b.Install(context.Background(), "op-4", t.TempDir(), "com.pkg")
	if err == nil {
		t.Error("Expected failure when no APK is present")
	}
}

func TestBridgeUninstall(t *testing.T) {
	tests := []struct {
		name     string
		opts     installer.UninstallOptions
		obbGone  bool
		dataGone bool
	}{
		{"remove all", installer.UninstallOptions{}, true, true},
		{"keep obb", installer.UninstallOptions{KeepObb: true}, false, true},
		{"keep data", installer.UninstallOptions{KeepData: true}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _, root, _ := newLocalBridge(t)
			obb := filepath.Join(root, "sdcard", "Android", "obb", "com.pkg")
			data := filepath.Join(root, "sdcard", "Android", "data", "com.pkg")
			os.MkdirAll(obb, 0755)
			os.MkdirAll(data, 0755)

			if err := b.Uninstall(context.Background(), "uninstall-1", "com.pkg", tt.opts); err != nil {
				t.Fatalf("Uninstall failed: %v", err)
			}
			if exists(obb) == tt.obbGone {
				t.Errorf("Expected obb gone=%v", tt.obbGone)
			}
			if exists(data) == tt.dataGone {
				t.Errorf("Expected data gone=%v", tt.dataGone)
			}
		})
	}
}

func TestBridgeUninstallTimeout(t *testing.T) {
	root := t.TempDir()
	waiters := NewWaiters()
	local := NewLocal(root, waiters)
	log, _ := oplog.Open("", 0, nil)
	b := NewBridge(silentSession{}, local, waiters, log, 30*time.Millisecond)

	obb := filepath.Join(root, "sdcard", "Android", "obb", "com.pkg")
	os.MkdirAll(obb, 0755)

	err := b.Uninstall(context.Background(), "uninstall-2", "com.pkg", installer.UninstallOptions{})
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("Expected timeout, got %v", err)
	}
	if !exists(obb) {
		t.Error("Expected no cleanup after a failed uninstall")
	}
}

func TestBridgeRejectsBadPackage(t *testing.T) {
	b, _, _, _ := newLocalBridge(t)
	if err := b.Uninstall(context.Background(), "u", "../../etc", installer.UninstallOptions{}); err == nil {
		t.Error("Expected invalid package name to be rejected")
	}
}
