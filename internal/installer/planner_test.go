package installer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPlanDirectoryUsesScript(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "Install.txt"), []byte("adb shell echo hi"), 0644)
	os.WriteFile(filepath.Join(dir, "base.apk"), []byte("x"), 0644)

	plan, err := PlanDirectory(dir, "pkg")
	if err != nil {
		t.Fatalf("PlanDirectory failed: %v", err)
	}
	if len(plan.Actions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(plan.Actions))
	}
	if _, ok := plan.Actions[0].(Shell); !ok {
		t.Errorf("Expected Shell action, got %T", plan.Actions[0])
	}
}

func TestPlanDirectoryFallback(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "z.apk"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "a.APK"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(dir, "com.test.pkg"), 0755)

	plan, err := PlanDirectory(dir, "com.test.pkg")
	if err != nil {
		t.Fatalf("PlanDirectory failed: %v", err)
	}
	if len(plan.Actions) != 2 {
		t.Fatalf("Expected 2 actions, got %d", len(plan.Actions))
	}
	if a, ok := plan.Actions[0].(InstallAPK); !ok || a.Path != "a.APK" {
		t.Errorf("Expected first APK by name, got %v", plan.Actions[0])
	}
	if a, ok := plan.Actions[1].(PushDirectory); !ok || a.LocalPath != "com.test.pkg" || a.RemotePath != ObbBase {
		t.Errorf("Expected OBB push, got %v", plan.Actions[1])
	}
	if plan.FromScript {
		t.Error("Expected fallback plan not to be marked as script")
	}
}

func TestPlanDirectoryNoAPK(t *testing.T) {
	dir := t.TempDir()
	plan, err := PlanDirectory(dir, "pkg")
	if err != nil {
		t.Fatalf("PlanDirectory failed: %v", err)
	}
	if len(plan.Actions) != 0 || len(plan.Warnings) != 1 {
		t.Errorf("Expected empty plan with one warning, got %+v", plan)
	}
}
