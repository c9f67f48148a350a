package installer

import (
	"strings"
	"testing"
)

const exampleScript = `adb install base.apk
adb push com.pkg /sdcard/Android/obb/
adb shell pm grant x y
adb wait-for-device
notadb hello
`

func TestParseExampleScript(t *testing.T) {
	plan := Parse(exampleScript)

	if len(plan.Actions) != 3 {
		t.Fatalf("Expected 3 actions, got %d", len(plan.Actions))
	}
	if len(plan.Warnings) != 2 {
		t.Fatalf("Expected 2 warnings, got %d: %v", len(plan.Warnings), plan.Warnings)
	}
	if !plan.FromScript {
		t.Error("Expected plan to be marked as script")
	}

	if a, ok := plan.Actions[0].(InstallAPK); !ok || a.Path != "base.apk" {
		t.Errorf("Expected InstallAPK base.apk, got %v", plan.Actions[0])
	}
	if a, ok := plan.Actions[1].(PushDirectory); !ok || a.LocalPath != "com.pkg" || a.RemotePath != "/sdcard/Android/obb/" {
		t.Errorf("Expected PushDirectory, got %v", plan.Actions[1])
	}
	if a, ok := plan.Actions[2].(Shell); !ok || a.Command != "pm grant x y" {
		t.Errorf("Expected Shell pm grant, got %v", plan.Actions[2])
	}

	if !strings.Contains(plan.Warnings[0], "Line 4") || !strings.Contains(plan.Warnings[0], "wait-for-device") {
		t.Errorf("Unexpected first warning: %s", plan.Warnings[0])
	}
	if !strings.Contains(plan.Warnings[1], "Line 5") {
		t.Errorf("Unexpected second warning: %s", plan.Warnings[1])
	}
}

func TestParseMalformedLines(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		actions  int
		warnings int
	}{
		{"empty", "", 0, 0},
		{"blank lines", "\n\n   \n", 0, 0},
		{"bare adb", "adb", 0, 1},
		{"install without path", "adb install", 0, 1},
		{"install with flags", "adb install -r -g game.apk", 1, 0},
		{"push missing remote", "adb push onlyone", 0, 1},
		{"shell missing command", "adb shell   ", 0, 1},
		{"crlf", "adb install a.apk\r\nadb shell mkdir -p /x\r\n", 2, 0},
		{"garbage", "\x00\x01;;;\nrm -rf /", 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Parse(tt.script)
			if len(plan.Actions) != tt.actions {
				t.Errorf("Expected %d actions, got %d", tt.actions, len(plan.Actions))
			}
			if len(plan.Warnings) != tt.warnings {
				t.Errorf("Expected %d warnings, got %d: %v", tt.warnings, len(plan.Warnings), plan.Warnings)
			}
		})
	}
}
