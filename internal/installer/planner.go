package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var scriptNames = []string{"install.txt", "Install.txt"}

// ScriptPath returns the install script inside gameDir, if any
func ScriptPath(gameDir string) (string, bool) {
	for _, name := range scriptNames {
		p := filepath.Join(gameDir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// PlanDirectory builds the plan for an extracted game directory: the install
// script when present, otherwise the first APK by name plus the package's
// OBB folder.
func PlanDirectory(gameDir, packageName string) (Plan, error) {
	if script, ok := ScriptPath(gameDir); ok {
		data, err := os.ReadFile(script)
		if err != nil {
			return Plan{}, fmt.Errorf("failed to read install script: %w", err)
		}
		return Parse(string(data)), nil
	}

	entries, err := os.ReadDir(gameDir)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to read game directory: %w", err)
	}

	var apks []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".apk") {
			apks = append(apks, e.Name())
		}
	}
	if len(apks) == 0 {
		return Plan{Warnings: []string{"No APK found in " + gameDir}}, nil
	}
	sort.Strings(apks)

	plan := Plan{Actions: []Action{InstallAPK{Path: apks[0]}}}

	if info, err := os.Stat(filepath.Join(gameDir, packageName)); err == nil && info.IsDir() {
		plan.Actions = append(plan.Actions, PushDirectory{
			LocalPath:  packageName,
			RemotePath: ObbBase,
		})
	}
	return plan, nil
}
