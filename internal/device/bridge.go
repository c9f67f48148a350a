package device

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mol-cyberwhip/veteranVR/internal/installer"
	"github.com/mol-cyberwhip/veteranVR/internal/oplog"
)

const (
	stageInstall   = "install"
	stageUninstall = "uninstall"
	stageCleanup   = "cleanup"
)

// Bridge applies install plans to a device and coordinates the asynchronous
// installer completions.
type Bridge struct {
	session Session
	storage Storage
	waiters *Waiters
	log     oplog.Recorder
	timeout time.Duration
}

// NewBridge creates a bridge. A non-positive timeout uses DefaultTimeout.
func NewBridge(session Session, storage Storage, waiters *Waiters, log oplog.Recorder, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{
		session: session,
		storage: storage,
		waiters: waiters,
		log:     log,
		timeout: timeout,
	}
}

// Complete delivers an installer callback for an operation
func (b *Bridge) Complete(operationID string, success bool, message string) bool {
	return b.waiters.Complete(operationID, success, message)
}

// InstallAPK commits one APK and waits for the installer's verdict
func (b *Bridge) InstallAPK(ctx context.Context, operationID, packageName, apkPath string) error {
	waiter, err := b.waiters.Register(operationID)
	if err != nil {
		return err
	}
	if err := b.session.CommitInstall(ctx, operationID, packageName, apkPath); err != nil {
		waiter.Cancel()
		return fmt.Errorf("failed to commit install session: %w", err)
	}
	if _, err := waiter.Wait(ctx, b.timeout); err != nil {
		return err
	}
	b.log.Append(operationID, stageInstall, oplog.LevelInfo, "Installed APK "+filepath.Base(apkPath), "")
	return nil
}

func (b *Bridge) MkdirAll(ctx context.Context, remote string) error {
	return b.storage.MkdirAll(ctx, remote)
}

func (b *Bridge) RemoveAll(ctx context.Context, remote string) error {
	return b.storage.RemoveAll(ctx, remote)
}

func (b *Bridge) Push(ctx context.Context, local, remote string, replace bool) error {
	return b.storage.Push(ctx, local, remote, replace)
}

// CopyObb mirrors a local OBB folder onto the package's OBB root, replacing
// what was there.
func (b *Bridge) CopyObb(ctx context.Context, operationID, packageName, localDir string) error {
	if !installer.ValidPackageName(packageName) {
		return fmt.Errorf("invalid package name %q", packageName)
	}
	if err := b.storage.Push(ctx, localDir, installer.ObbRoot(packageName), true); err != nil {
		return fmt.Errorf("failed to copy obb: %w", err)
	}
	b.log.Append(operationID, stageInstall, oplog.LevelInfo, "Copied OBB for "+packageName, "")
	return nil
}

// Install plans and executes the install of an extracted game directory.
// Script plans run under the allow-list and fail only when no action ran.
func (b *Bridge) Install(ctx context.Context, operationID, gameDir, packageName string) (installer.Report, error) {
	plan, err := installer.PlanDirectory(gameDir, packageName)
	if err != nil {
		return installer.Report{}, err
	}
	if !plan.FromScript {
		return b.installFallback(ctx, operationID, gameDir, packageName, plan)
	}
	b.log.Append(operationID, stageInstall, oplog.LevelInfo, "Running install.txt", "")

	report, err := installer.NewExecutor(b, b.log).Execute(ctx, operationID, gameDir, packageName, plan)
	if err != nil {
		return report, err
	}
	if report.Failed() {
		return report, fmt.Errorf("no install action executed: %s", strings.Join(report.Warnings, "; "))
	}
	return report, nil
}

// installFallback installs the bare APK and mirrors the OBB folder
func (b *Bridge) installFallback(ctx context.Context, operationID, gameDir, packageName string, plan installer.Plan) (installer.Report, error) {
	report := installer.Report{Warnings: plan.Warnings}
	if len(plan.Actions) == 0 {
		return report, fmt.Errorf("%s", strings.Join(plan.Warnings, "; "))
	}

	for _, a := range plan.Actions {
		var err error
		switch act := a.(type) {
		case installer.InstallAPK:
			err = b.InstallAPK(ctx, operationID, packageName, filepath.Join(gameDir, act.Path))
		case installer.PushDirectory:
			err = b.CopyObb(ctx, operationID, packageName, filepath.Join(gameDir, act.LocalPath))
		}
		if err != nil {
			return report, err
		}
		report.ExecutedActions++
	}
	return report, nil
}

// Uninstall removes a package, then its OBB and data folders unless kept
func (b *Bridge) Uninstall(ctx context.Context, operationID, packageName string, opts installer.UninstallOptions) error {
	if !installer.ValidPackageName(packageName) {
		return fmt.Errorf("invalid package name %q", packageName)
	}

	waiter, err := b.waiters.Register(operationID)
	if err != nil {
		return err
	}
	if err := b.session.CommitUninstall(ctx, operationID, packageName); err != nil {
		waiter.Cancel()
		return fmt.Errorf("failed to start uninstall: %w", err)
	}
	if _, err := waiter.Wait(ctx, b.timeout); err != nil {
		return err
	}
	b.log.Append(operationID, stageUninstall, oplog.LevelInfo, "Package uninstalled: "+packageName, "")

	if !opts.KeepObb {
		if err := b.storage.RemoveAll(ctx, installer.ObbRoot(packageName)); err != nil {
			return fmt.Errorf("failed to remove obb: %w", err)
		}
		b.log.Append(operationID, stageCleanup, oplog.LevelInfo, "Removed OBB for "+packageName, "")
	}
	if !opts.KeepData {
		if err := b.storage.RemoveAll(ctx, installer.DataRoot(packageName)); err != nil {
			return fmt.Errorf("failed to remove data: %w", err)
		}
		b.log.Append(operationID, stageCleanup, oplog.LevelInfo, "Removed data for "+packageName, "")
	}
	return nil
}

// FreeBytes reports free space on the device
func (b *Bridge) FreeBytes(ctx context.Context) (int64, error) {
	return b.storage.FreeBytes(ctx)
}
