package catalog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	modernSizePattern = regexp.MustCompile(`(?i)^\d+(\.\d+)?\s*(KB|MB|GB|TB|KIB|MIB|GIB|TIB)$`)
	versionNamePattern = regexp.MustCompile(`(?i)\bv\d+\+([^\s-]+)`)
	datePrefixPattern  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)
)

const newGameWindowDays = 30

type gameKey struct {
	pkg  string
	name string
}

// Parse reads a semicolon separated catalog feed. The first line is a header.
// Rows with fewer than four fields are dropped.
func Parse(content string, now time.Time) *Dataset {
	var (
		order  []gameKey
		latest = make(map[gameKey]Game)
		scores = make(map[string]float64)
		pkgs   []string
		all    []Game
	)

	lines := strings.Split(content, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		g, ok := parseRow(strings.Split(line, ";"), now)
		if !ok {
			continue
		}
		all = append(all, g)

		if score, err := strconv.ParseFloat(g.Downloads, 64); err == nil {
			existing, seen := scores[g.PackageName]
			if !seen {
				pkgs = append(pkgs, g.PackageName)
			}
			if !seen || score > existing {
				scores[g.PackageName] = score
			}
		}

		key := gameKey{pkg: g.PackageName, name: g.GameName}
		existing, seen := latest[key]
		if !seen {
			order = append(order, key)
			latest[key] = g
		} else if isHigherVersion(g, existing) {
			latest[key] = g
		}
	}

	ranks := rankPackages(pkgs, scores)

	ds := &Dataset{
		LatestGames: make([]Game, 0, len(order)),
		AllVersions: all,
	}
	for _, key := range order {
		g := latest[key]
		g.PopularityRank = ranks[g.PackageName]
		ds.LatestGames = append(ds.LatestGames, g)
	}
	return ds
}

// rankPackages assigns dense ranks 1..K to packages with a positive score.
// Ties keep first-seen order.
func rankPackages(pkgs []string, scores map[string]float64) map[string]int {
	type scored struct {
		pkg   string
		score float64
	}
	var positive []scored
	for _, pkg := range pkgs {
		if score := scores[pkg]; score > 0 {
			positive = append(positive, scored{pkg, score})
		}
	}
	sort.SliceStable(positive, func(i, j int) bool {
		return positive[i].score > positive[j].score
	})

	ranks := make(map[string]int, len(positive))
	for i, p := range positive {
		ranks[p.pkg] = i + 1
	}
	return ranks
}

func parseRow(fields []string, now time.Time) (Game, bool) {
	if len(fields) < 4 {
		return Game{}, false
	}

	g := Game{
		GameName:    field(fields, 0),
		ReleaseName: field(fields, 1),
		PackageName: field(fields, 2),
		VersionCode: field(fields, 3),
	}

	if isModernRow(fields) {
		g.LastUpdated = field(fields, 4)
		g.Size = normalizeSize(field(fields, 5))
		g.Downloads = field(fields, 6)
		g.VersionName = versionNameFromRelease(g.ReleaseName)
	} else {
		g.ReleaseAPKPath = field(fields, 4)
		g.VersionName = field(fields, 5)
		g.Downloads = field(fields, 6)
		g.Size = field(fields, 7)
		g.LastUpdated = field(fields, 8)
	}
	g.IsNew = IsNewRelease(g.LastUpdated, now)
	return g, true
}

func field(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// isModernRow detects the seven column layout: a date in field 4 and a size in field 5
func isModernRow(fields []string) bool {
	if len(fields) < 7 {
		return false
	}

	date := strings.TrimSpace(fields[4])
	if len(date) < 10 || date[4] != '-' || date[7] != '-' {
		return false
	}

	size := strings.ToUpper(strings.TrimSpace(fields[5]))
	if _, err := strconv.ParseFloat(size, 64); err == nil {
		return true
	}
	return modernSizePattern.MatchString(size)
}

func versionNameFromRelease(release string) string {
	m := versionNamePattern.FindStringSubmatch(release)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// normalizeSize renders a bare number as megabytes
func normalizeSize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || modernSizePattern.MatchString(raw) {
		return raw
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10) + " MB"
	}
	return strconv.FormatFloat(n, 'f', -1, 64) + " MB"
}

// isHigherVersion compares version codes numerically; unparsable codes count as zero
// and equal values fall back to a raw string compare.
func isHigherVersion(candidate, existing Game) bool {
	c, _ := strconv.ParseInt(candidate.VersionCode, 10, 64)
	e, _ := strconv.ParseInt(existing.VersionCode, 10, 64)
	switch {
	case c > e:
		return true
	case c < e:
		return false
	default:
		return candidate.VersionCode > existing.VersionCode
	}
}

// IsNewRelease reports whether lastUpdated starts with a YYYY-MM-DD date no more
// than 30 whole days before now. Dates in the future count as new.
func IsNewRelease(lastUpdated string, now time.Time) bool {
	m := datePrefixPattern.FindStringSubmatch(lastUpdated)
	if m == nil {
		return false
	}
	dt, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		return false
	}
	days := int64(now.Sub(dt) / (24 * time.Hour))
	return days <= newGameWindowDays
}
