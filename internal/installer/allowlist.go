package installer

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	ObbBase  = "/sdcard/Android/obb/"
	DataBase = "/sdcard/Android/data/"
)

var packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

// ValidPackageName rejects names that could escape the allow-listed roots
func ValidPackageName(pkg string) bool {
	return packageNamePattern.MatchString(pkg)
}

// ObbRoot is the OBB directory of a package
func ObbRoot(pkg string) string {
	return ObbBase + pkg
}

// DataRoot is the app-data directory of a package
func DataRoot(pkg string) string {
	return DataBase + pkg
}

// AllowedPath cleans a device path and reports whether it lies inside one of
// the package's two roots. The cleaned path is returned.
func AllowedPath(p, pkg string) (string, bool) {
	if !ValidPackageName(pkg) {
		return "", false
	}

	p = strings.Trim(strings.TrimSpace(p), `"'`)
	if !strings.HasPrefix(p, "/") {
		return "", false
	}
	cleaned := path.Clean(p)

	for _, root := range []string{ObbRoot(pkg), DataRoot(pkg)} {
		if cleaned == root || strings.HasPrefix(cleaned, root+"/") {
			return cleaned, true
		}
	}
	return "", false
}

// PushTarget resolves where a push lands. A remote path ending in "/" is a
// directory that receives the local entry by name.
func PushTarget(localPath, remotePath, pkg string) (string, bool) {
	remote := strings.Trim(strings.TrimSpace(remotePath), `"'`)
	if strings.HasSuffix(remote, "/") {
		remote += path.Base(path.Clean(filepath.ToSlash(localPath)))
	}
	return AllowedPath(remote, pkg)
}

// LocalSource resolves a script path relative to gameDir and refuses paths
// that climb out of it.
func LocalSource(gameDir, rel string) (string, bool) {
	rel = strings.Trim(strings.TrimSpace(rel), `"'`)
	if rel == "" {
		return "", false
	}
	joined := filepath.Join(gameDir, filepath.FromSlash(rel))
	r, err := filepath.Rel(gameDir, joined)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return joined, true
}
