package catalog

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// SortBy selects the library ordering
type SortBy string

const (
	SortByName       SortBy = "name"
	SortByDate       SortBy = "date"
	SortBySize       SortBy = "size"
	SortByPopularity SortBy = "popularity"
)

// Filter narrows the library after search
type Filter string

const (
	FilterAll       Filter = "all"
	FilterFavorites Filter = "favorites"
	FilterNew       Filter = "new"
	FilterPopular   Filter = "popular"
	FilterNonMods   Filter = "non_mods"
)

const popularCutoff = 200

// Query describes a library read
type Query struct {
	Search    string
	SortBy    SortBy
	Ascending bool
	Filter    Filter
	Favorites map[string]bool
}

// DefaultQuery returns the library's initial view: most popular first
func DefaultQuery() Query {
	return Query{SortBy: SortByPopularity, Filter: FilterAll}
}

// ParseSortBy accepts a sort name in any case
func ParseSortBy(s string) (SortBy, bool) {
	switch v := SortBy(strings.ToLower(strings.TrimSpace(s))); v {
	case SortByName, SortByDate, SortBySize, SortByPopularity:
		return v, true
	}
	return "", false
}

// ParseFilter accepts a filter name in any case; "non-mods" is also allowed
func ParseFilter(s string) (Filter, bool) {
	v := Filter(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch v {
	case FilterAll, FilterFavorites, FilterNew, FilterPopular, FilterNonMods:
		return v, true
	}
	return "", false
}

// Apply runs search, filter and sort over a dataset. The direction flag
// reverses the sorted result as a final step.
func Apply(latest, all []Game, q Query) []Game {
	games := search(latest, all, q.Search)

	switch q.Filter {
	case FilterFavorites:
		games = keep(games, func(g Game) bool { return q.Favorites[g.PackageName] })
	case FilterNew:
		games = keep(games, func(g Game) bool { return g.IsNew })
	case FilterPopular:
		games = keep(games, func(g Game) bool {
			return g.PopularityRank >= 1 && g.PopularityRank <= popularCutoff
		})
	case FilterNonMods:
		games = keep(games, func(g Game) bool { return !g.IsModded() })
	}

	sortGames(games, q.SortBy)
	if !q.Ascending {
		for i, j := 0, len(games)-1; i < j; i, j = i+1, j-1 {
			games[i], games[j] = games[j], games[i]
		}
	}
	return games
}

func search(latest, all []Game, raw string) []Game {
	q := strings.TrimSpace(raw)
	if q == "" {
		return append([]Game(nil), latest...)
	}

	if needle, ok := cutPrefixFold(q, "release:"); ok {
		return keep(all, func(g Game) bool {
			return strings.Contains(strings.ToLower(g.ReleaseName), needle)
		})
	}
	if needle, ok := cutPrefixFold(q, "pkg:"); ok {
		return keep(all, func(g Game) bool {
			return strings.Contains(strings.ToLower(g.PackageName), needle)
		})
	}

	needle := strings.ToLower(q)
	return keep(latest, func(g Game) bool {
		return strings.Contains(strings.ToLower(g.GameName), needle) ||
			strings.Contains(strings.ToLower(g.ReleaseName), needle) ||
			strings.Contains(strings.ToLower(g.PackageName), needle)
	})
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(s[len(prefix):])), true
}

func keep(games []Game, pred func(Game) bool) []Game {
	out := make([]Game, 0, len(games))
	for _, g := range games {
		if pred(g) {
			out = append(out, g)
		}
	}
	return out
}

func sortGames(games []Game, by SortBy) {
	switch by {
	case SortByName:
		sort.SliceStable(games, func(i, j int) bool {
			return strings.ToLower(games[i].GameName) < strings.ToLower(games[j].GameName)
		})
	case SortByDate:
		sort.SliceStable(games, func(i, j int) bool {
			return games[i].LastUpdated < games[j].LastUpdated
		})
	case SortBySize:
		sort.SliceStable(games, func(i, j int) bool {
			return SizeMB(games[i].Size) < SizeMB(games[j].Size)
		})
	case SortByPopularity:
		sort.SliceStable(games, func(i, j int) bool {
			return rankKey(games[i]) < rankKey(games[j])
		})
	}
}

// rankKey places unranked games after every ranked one
func rankKey(g Game) int {
	if g.PopularityRank > 0 {
		return g.PopularityRank
	}
	return math.MaxInt
}

// SizeMB converts a catalog size string to megabytes. Unknown or
// unparsable values are zero.
func SizeMB(size string) float64 {
	s := strings.ToLower(strings.TrimSpace(size))
	if s == "" || s == "unknown" {
		return 0
	}

	units := []struct {
		suffix string
		factor float64
	}{
		{"gb", 1024},
		{"mb", 1},
		{"kb", 1.0 / 1024},
	}
	for _, u := range units {
		idx := strings.Index(s, u.suffix)
		if idx < 0 {
			continue
		}
		if n, err := strconv.ParseFloat(strings.TrimSpace(s[:idx]), 64); err == nil {
			return n * u.factor
		}
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return 0
}
