package device

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultADBPath = "adb"
	stagingDir     = "/data/local/tmp/"
)

// ADB drives a headset over the adb command line tool
type ADB struct {
	bin     string
	serial  string
	waiters *Waiters
	logger  *slog.Logger
}

// NewADB creates an adb backed device. serial may be empty when only one
// device is attached.
func NewADB(bin, serial string, waiters *Waiters, logger *slog.Logger) *ADB {
	if bin == "" {
		bin = DefaultADBPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ADB{bin: bin, serial: serial, waiters: waiters, logger: logger}
}

func (a *ADB) run(ctx context.Context, args ...string) (string, error) {
	if a.serial != "" {
		args = append([]string{"-s", a.serial}, args...)
	}
	out, err := exec.CommandContext(ctx, a.bin, args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("adb %s failed: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (a *ADB) shell(ctx context.Context, command string) (string, error) {
	return a.run(ctx, "shell", command)
}

// CommitInstall stages the APK in /data/local/tmp and runs pm install in the
// background, completing the operation's waiter with the outcome.
func (a *ADB) CommitInstall(ctx context.Context, operationID, packageName, apkPath string) error {
	remote := stagingDir + filepath.Base(apkPath)
	if _, err := a.run(ctx, "push", apkPath, remote); err != nil {
		return fmt.Errorf("failed to stage apk: %w", err)
	}

	go func() {
		out, err := a.shell(ctx, "pm install -r -d -g "+shellQuote(remote))
		if _, rmErr := a.shell(ctx, "rm -f "+shellQuote(remote)); rmErr != nil {
			a.logger.Warn("failed to remove staged apk", "path", remote, "error", rmErr)
		}
		a.complete(operationID, out, err)
	}()
	return nil
}

// CommitUninstall runs adb uninstall in the background
func (a *ADB) CommitUninstall(ctx context.Context, operationID, packageName string) error {
	go func() {
		out, err := a.run(ctx, "uninstall", packageName)
		a.complete(operationID, out, err)
	}()
	return nil
}

func (a *ADB) complete(operationID, out string, err error) {
	msg := strings.TrimSpace(out)
	if err == nil && strings.Contains(out, "Success") {
		a.waiters.Complete(operationID, true, msg)
		return
	}
	if msg == "" && err != nil {
		msg = err.Error()
	}
	a.waiters.Complete(operationID, false, msg)
}

func (a *ADB) MkdirAll(ctx context.Context, remote string) error {
	_, err := a.shell(ctx, "mkdir -p "+shellQuote(remote))
	return err
}

func (a *ADB) RemoveAll(ctx context.Context, remote string) error {
	_, err := a.shell(ctx, "rm -rf "+shellQuote(remote))
	return err
}

// Push copies a file or directory. Directory contents are merged into remote.
func (a *ADB) Push(ctx context.Context, local, remote string, replace bool) error {
	if replace {
		if err := a.RemoveAll(ctx, remote); err != nil {
			return err
		}
	}

	info, err := os.Stat(local)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		if err := a.MkdirAll(ctx, path.Dir(remote)); err != nil {
			return err
		}
		_, err = a.run(ctx, "push", local, remote)
		return err
	}

	if err := a.MkdirAll(ctx, remote); err != nil {
		return err
	}
	_, err = a.run(ctx, "push", local+string(filepath.Separator)+".", remote)
	return err
}

// FreeBytes reports free space on the headset's /data partition
func (a *ADB) FreeBytes(ctx context.Context) (int64, error) {
	out, err := a.shell(ctx, "df /data")
	if err != nil {
		return 0, err
	}
	free, ok := ParseDataFree(out)
	if !ok {
		return 0, fmt.Errorf("could not parse df output")
	}
	return free, nil
}

// Devices lists attached devices
func (a *ADB) Devices(ctx context.Context) ([]Info, error) {
	out, err := exec.CommandContext(ctx, a.bin, "devices", "-l").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("adb devices failed: %w", err)
	}
	return ParseDevices(string(out)), nil
}

// Ready reports whether the configured device is attached and authorised
func (a *ADB) Ready(ctx context.Context) bool {
	devices, err := a.Devices(ctx)
	if err != nil {
		return false
	}
	for _, d := range devices {
		if d.State != "device" {
			continue
		}
		if a.serial == "" || d.Serial == a.serial {
			return true
		}
	}
	return false
}

// Info is one line of adb devices -l
type Info struct {
	Serial  string `json:"serial"`
	State   string `json:"state"`
	Model   string `json:"model,omitempty"`
	Product string `json:"product,omitempty"`
}

// ParseDevices parses adb devices -l output
func ParseDevices(output string) []Info {
	var devices []Info
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		d := Info{Serial: fields[0], State: fields[1]}
		for _, f := range fields[2:] {
			k, v, ok := strings.Cut(f, ":")
			if !ok {
				continue
			}
			switch k {
			case "model":
				d.Model = v
			case "product":
				d.Product = v
			}
		}
		devices = append(devices, d)
	}
	return devices
}

var sizeToken = regexp.MustCompile(`^(\d+(?:\.\d+)?)([kmgtp]?i?b?)$`)

var dfMountPreference = []string{"/data", "/storage/emulated", "/sdcard"}

// ParseDataFree extracts available bytes from df output, preferring the
// /data mount. Unsuffixed numbers are 1K blocks.
func ParseDataFree(output string) (int64, bool) {
	bestScore := -1
	var best int64
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(strings.ToLower(line), "filesystem") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}
		free, ok := sizeBytes(parts[3])
		if !ok {
			continue
		}

		mount := parts[len(parts)-1]
		score := 0
		for i, pref := range dfMountPreference {
			if strings.HasPrefix(mount, pref) {
				score = len(dfMountPreference) - i
				break
			}
		}
		if score > bestScore {
			bestScore = score
			best = free
		}
	}
	return best, bestScore >= 0
}

func sizeBytes(token string) (int64, bool) {
	m := sizeToken.FindStringSubmatch(strings.ToLower(strings.TrimSpace(token)))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	const k = 1024.0
	var factor float64
	switch strings.TrimSuffix(strings.TrimSuffix(m[2], "b"), "i") {
	case "":
		if m[2] == "b" {
			factor = 1
		} else {
			factor = k
		}
	case "k":
		factor = k
	case "m":
		factor = k * k
	case "g":
		factor = k * k * k
	case "t":
		factor = k * k * k * k
	case "p":
		factor = k * k * k * k * k
	default:
		return 0, false
	}
	return int64(n * factor), true
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
