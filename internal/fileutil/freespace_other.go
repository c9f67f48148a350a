//go:build !linux && !darwin && !freebsd

package fileutil

import "errors"

// FreeBytes is not available on this platform
func FreeBytes(path string) (int64, error) {
	return 0, errors.New("free space query not supported on this platform")
}
