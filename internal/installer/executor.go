package installer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mol-cyberwhip/veteranVR/internal/oplog"
)

const stageInstall = "install"

// Device performs the effects of a plan. Paths passed to the storage
// methods have already cleared the allow-list.
type Device interface {
	InstallAPK(ctx context.Context, operationID, packageName, apkPath string) error
	MkdirAll(ctx context.Context, remote string) error
	RemoveAll(ctx context.Context, remote string) error
	// Push copies a local file or tree to remote. With replace set any
	// existing remote content is removed first.
	Push(ctx context.Context, local, remote string, replace bool) error
}

// Executor applies plans against a device under the allow-list
type Executor struct {
	device Device
	log    oplog.Recorder
}

// NewExecutor creates an executor
func NewExecutor(device Device, log oplog.Recorder) *Executor {
	return &Executor{device: device, log: log}
}

// Execute runs every action of plan. Policy violations and missing files
// become warnings; device failures abort with an error.
func (e *Executor) Execute(ctx context.Context, operationID, gameDir, pkg string, plan Plan) (Report, error) {
	report := Report{Warnings: append([]string(nil), plan.Warnings...)}

	for _, a := range plan.Actions {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var (
			warnings []string
			err      error
		)
		switch act := a.(type) {
		case InstallAPK:
			warnings, err = e.installAPK(ctx, operationID, gameDir, pkg, act)
		case PushDirectory:
			warnings, err = e.push(ctx, gameDir, pkg, act)
		case Shell:
			warnings, err = e.shell(ctx, operationID, pkg, act)
		default:
			warnings = []string{fmt.Sprintf("install.txt unknown action: %s", a)}
		}
		if err != nil {
			return report, err
		}

		report.Warnings = append(report.Warnings, warnings...)
		if len(warnings) == 0 {
			report.ExecutedActions++
		}
	}

	if plan.FromScript && e.log != nil {
		level := oplog.LevelInfo
		if len(report.Warnings) > 0 {
			level = oplog.LevelWarn
		}
		e.log.Append(operationID, stageInstall, level, "install.txt completed",
			fmt.Sprintf("executed=%d warnings=%d", report.ExecutedActions, len(report.Warnings)))
	}

	return report, nil
}

func (e *Executor) installAPK(ctx context.Context, operationID, gameDir, pkg string, a InstallAPK) ([]string, error) {
	apk, ok := LocalSource(gameDir, a.Path)
	if !ok {
		return []string{"install.txt blocked apk path: " + a.Path}, nil
	}
	if _, err := os.Stat(apk); err != nil {
		return []string{"install.txt apk not found: " + a.Path}, nil
	}
	if err := e.device.InstallAPK(ctx, operationID, pkg, apk); err != nil {
		return nil, err
	}
	return nil, nil
}

func (e *Executor) push(ctx context.Context, gameDir, pkg string, a PushDirectory) ([]string, error) {
	local, ok := LocalSource(gameDir, a.LocalPath)
	if !ok {
		return []string{"install.txt blocked push source: " + a.LocalPath}, nil
	}
	if _, err := os.Stat(local); err != nil {
		return []string{"install.txt source not found: " + a.LocalPath}, nil
	}

	target, ok := PushTarget(a.LocalPath, a.RemotePath, pkg)
	if !ok {
		return []string{"install.txt blocked push destination: " + a.RemotePath}, nil
	}

	// a push onto the OBB root mirrors the folder
	replace := target == ObbRoot(pkg)
	if err := e.device.Push(ctx, local, target, replace); err != nil {
		return nil, fmt.Errorf("failed to push %s: %w", a.LocalPath, err)
	}
	return nil, nil
}

func (e *Executor) shell(ctx context.Context, operationID, pkg string, a Shell) ([]string, error) {
	tokens := strings.Fields(a.Command)
	if len(tokens) == 0 {
		return []string{"install.txt shell command empty"}, nil
	}

	verb := ""
	if len(tokens) >= 2 {
		verb = tokens[0] + " " + tokens[1]
	}

	switch {
	case verb == "mkdir -p":
		target, ok := shellTarget(tokens, pkg)
		if !ok {
			return []string{"install.txt blocked mkdir path: " + shellArg(tokens)}, nil
		}
		if err := e.device.MkdirAll(ctx, target); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", target, err)
		}
		return nil, nil

	case verb == "rm -rf":
		target, ok := shellTarget(tokens, pkg)
		if !ok {
			return []string{"install.txt blocked rm path: " + shellArg(tokens)}, nil
		}
		if err := e.device.RemoveAll(ctx, target); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", target, err)
		}
		return nil, nil

	case verb == "pm grant" && len(tokens) >= 4:
		if e.log != nil {
			e.log.Append(operationID, stageInstall, oplog.LevelWarn, "Skipped pm grant", a.Command)
		}
		return []string{"install.txt pm grant requires shell privileges; skipped"}, nil
	}

	return []string{"install.txt unsupported shell command: " + a.Command}, nil
}

// shellTarget accepts exactly one path argument
func shellTarget(tokens []string, pkg string) (string, bool) {
	if len(tokens) != 3 {
		return "", false
	}
	return AllowedPath(tokens[2], pkg)
}

func shellArg(tokens []string) string {
	if len(tokens) < 3 {
		return "<missing>"
	}
	return strings.Join(tokens[2:], " ")
}
