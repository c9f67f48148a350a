package installer

import (
	"fmt"
	"strings"
)

// Parse reads an install.txt script. It never fails: every line it cannot
// use yields a warning and parsing continues.
func Parse(script string) Plan {
	var plan Plan
	plan.FromScript = true

	for i, raw := range strings.Split(script, "\n") {
		n := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "adb") {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("Line %d: ignored non-adb command '%s'", n, line))
			continue
		}

		args := strings.Fields(strings.TrimPrefix(line, "adb"))
		if len(args) == 0 {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("Line %d: empty adb command", n))
			continue
		}

		switch args[0] {
		case "install":
			if len(args) < 2 {
				plan.Warnings = append(plan.Warnings, fmt.Sprintf("Line %d: install missing apk path", n))
				continue
			}
			// flags such as -r or -g precede the path
			plan.Actions = append(plan.Actions, InstallAPK{Path: args[len(args)-1]})

		case "push":
			if len(args) < 3 {
				plan.Warnings = append(plan.Warnings, fmt.Sprintf("Line %d: push missing arguments", n))
				continue
			}
			plan.Actions = append(plan.Actions, PushDirectory{LocalPath: args[1], RemotePath: args[2]})

		case "shell":
			cmd := strings.Join(args[1:], " ")
			if strings.TrimSpace(cmd) == "" {
				plan.Warnings = append(plan.Warnings, fmt.Sprintf("Line %d: shell missing command", n))
				continue
			}
			plan.Actions = append(plan.Actions, Shell{Command: cmd})

		default:
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("Line %d: unsupported adb command '%s', continuing", n, args[0]))
		}
	}

	return plan
}
