package catalog

import (
	"regexp"
	"sort"
	"strings"
)

var hrefPattern = regexp.MustCompile(`href="([^"]+)"`)

// MetaArchiveURL returns the location of the catalog archive for a mirror
func MetaArchiveURL(baseURI string) string {
	return strings.TrimRight(baseURI, "/") + "/meta.7z"
}

// IndexURL returns the directory listing location for a content hash
func IndexURL(baseURI, hash string) string {
	return strings.TrimRight(baseURI, "/") + "/" + hash + "/"
}

// IndexEntries extracts link targets from an autoindex page
func IndexEntries(indexHTML string) []string {
	var entries []string
	for _, m := range hrefPattern.FindAllStringSubmatch(indexHTML, -1) {
		href := m[1]
		if strings.TrimSpace(href) == "" || href == "../" {
			continue
		}
		entries = append(entries, strings.TrimSpace(href))
	}
	return entries
}

// GameChunks lists the archive volumes for a hash directory.
// A .7z.001 volume always sorts first, the rest lexicographically.
func GameChunks(baseURI, hash, indexHTML string) []RemoteChunkFile {
	base := strings.TrimRight(baseURI, "/")
	prefix := strings.ToLower(hash)

	var names []string
	for _, name := range IndexEntries(indexHTML) {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		if strings.HasSuffix(lower, ".7z") || strings.Contains(lower, ".7z.") {
			names = append(names, name)
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		fi := isFirstVolume(names[i])
		fj := isFirstVolume(names[j])
		if fi != fj {
			return fi
		}
		return names[i] < names[j]
	})

	chunks := make([]RemoteChunkFile, 0, len(names))
	for _, name := range names {
		chunks = append(chunks, RemoteChunkFile{
			Name: name,
			URL:  base + "/" + hash + "/" + name,
		})
	}
	return chunks
}

func isFirstVolume(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".7z.001")
}

// ArchiveEntry picks the volume handed to the extractor
func ArchiveEntry(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, name := range sorted {
		if isFirstVolume(name) {
			return name
		}
	}
	if len(sorted) == 0 {
		return ""
	}
	return sorted[0]
}
