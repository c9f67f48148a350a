//go:build linux || darwin || freebsd

package fileutil

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FreeBytes reports the space available to unprivileged users on the
// filesystem holding path.
func FreeBytes(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("failed to stat filesystem: %w", err)
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
