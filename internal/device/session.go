package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mol-cyberwhip/veteranVR/internal/fileutil"
)

// Session starts installer work. Commit calls return once the request is
// accepted; the outcome arrives later through Waiters.Complete.
type Session interface {
	CommitInstall(ctx context.Context, operationID, packageName, apkPath string) error
	CommitUninstall(ctx context.Context, operationID, packageName string) error
}

// Storage is the device filesystem as seen by install plans
type Storage interface {
	MkdirAll(ctx context.Context, remote string) error
	RemoveAll(ctx context.Context, remote string) error
	Push(ctx context.Context, local, remote string, replace bool) error
	FreeBytes(ctx context.Context) (int64, error)
}

const sdcardPrefix = "/sdcard/"

// Local emulates a device inside a host directory: /sdcard/... maps to
// <root>/sdcard/... and installed APKs are copied to <root>/data/app/<package>.
type Local struct {
	root    string
	waiters *Waiters
}

// NewLocal creates a directory backed device
func NewLocal(root string, waiters *Waiters) *Local {
	return &Local{root: root, waiters: waiters}
}

func (l *Local) resolve(remote string) (string, error) {
	if !strings.HasPrefix(remote, sdcardPrefix) {
		return "", fmt.Errorf("remote path outside /sdcard: %s", remote)
	}
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimPrefix(remote, "/"))), nil
}

func (l *Local) appDir() string {
	return filepath.Join(l.root, "data", "app")
}

// CommitInstall copies the APK under data/app/<package> and completes asynchronously
func (l *Local) CommitInstall(ctx context.Context, operationID, packageName, apkPath string) error {
	if _, err := os.Stat(apkPath); err != nil {
		return fmt.Errorf("failed to stage apk: %w", err)
	}
	go func() {
		err := fileutil.CopyFile(apkPath, filepath.Join(l.appDir(), packageName, filepath.Base(apkPath)))
		if err != nil {
			l.waiters.Complete(operationID, false, err.Error())
			return
		}
		l.waiters.Complete(operationID, true, "")
	}()
	return nil
}

// CommitUninstall removes <root>/data/app/<package> and completes asynchronously
func (l *Local) CommitUninstall(ctx context.Context, operationID, packageName string) error {
	go func() {
		if err := os.RemoveAll(filepath.Join(l.appDir(), packageName)); err != nil {
			l.waiters.Complete(operationID, false, err.Error())
			return
		}
		l.waiters.Complete(operationID, true, "")
	}()
	return nil
}

func (l *Local) MkdirAll(ctx context.Context, remote string) error {
	p, err := l.resolve(remote)
	if err != nil {
		return err
	}
	return os.MkdirAll(p, 0755)
}

func (l *Local) RemoveAll(ctx context.Context, remote string) error {
	p, err := l.resolve(remote)
	if err != nil {
		return err
	}
	return os.RemoveAll(p)
}

func (l *Local) Push(ctx context.Context, local, remote string, replace bool) error {
	dst, err := l.resolve(remote)
	if err != nil {
		return err
	}
	if replace {
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("failed to clear %s: %w", remote, err)
		}
	}

	info, err := os.Stat(local)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fileutil.CopyDir(local, dst)
	}
	return fileutil.CopyFile(local, dst)
}

func (l *Local) FreeBytes(ctx context.Context) (int64, error) {
	if err := os.MkdirAll(l.root, 0755); err != nil {
		return 0, err
	}
	return fileutil.FreeBytes(l.root)
}

// Ready reports whether the emulated device root is writable
func (l *Local) Ready(ctx context.Context) bool {
	if err := os.MkdirAll(l.appDir(), 0755); err != nil {
		return false
	}
	f, err := os.CreateTemp(l.root, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	return os.Remove(name) == nil
}
