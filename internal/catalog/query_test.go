package catalog

import "testing"

func names(games []Game) []string {
	out := make([]string, len(games))
	for i, g := range games {
		out[i] = g.GameName
	}
	return out
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var library = []Game{
	{GameName: "Charlie", ReleaseName: "Charlie v1", PackageName: "com.c", LastUpdated: "2024-03-01", Size: "1.5 GB", PopularityRank: 2, IsNew: true},
	{GameName: "alpha", ReleaseName: "Alpha v2", PackageName: "com.a", LastUpdated: "2024-01-01", Size: "200 MB", PopularityRank: 0},
	{GameName: "Bravo", ReleaseName: "Bravo-MOD v3", PackageName: "com.b", LastUpdated: "2024-02-01", Size: "unknown", PopularityRank: 1},
	{GameName: "Delta", ReleaseName: "Delta v4", PackageName: "com.d", LastUpdated: "2023-12-01", Size: "4096 KB", PopularityRank: 201},
}

func TestApplySort(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"name asc", Query{SortBy: SortByName, Ascending: true}, []string{"alpha", "Bravo", "Charlie", "Delta"}},
		{"name desc", Query{SortBy: SortByName}, []string{"Delta", "Charlie", "Bravo", "alpha"}},
		{"date asc", Query{SortBy: SortByDate, Ascending: true}, []string{"Delta", "alpha", "Bravo", "Charlie"}},
		{"size asc", Query{SortBy: SortBySize, Ascending: true}, []string{"Bravo", "Delta", "alpha", "Charlie"}},
		{"popularity asc", Query{SortBy: SortByPopularity, Ascending: true}, []string{"Bravo", "Charlie", "Delta", "alpha"}},
		// the unranked entry leads once the sorted sequence is reversed
		{"popularity desc", Query{SortBy: SortByPopularity}, []string{"alpha", "Delta", "Charlie", "Bravo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(Apply(library, library, tt.q))
			if !equalNames(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"all", Query{SortBy: SortByName, Ascending: true, Filter: FilterAll}, []string{"alpha", "Bravo", "Charlie", "Delta"}},
		{"new", Query{SortBy: SortByName, Ascending: true, Filter: FilterNew}, []string{"Charlie"}},
		{"popular", Query{SortBy: SortByName, Ascending: true, Filter: FilterPopular}, []string{"Bravo", "Charlie"}},
		{"non mods", Query{SortBy: SortByName, Ascending: true, Filter: FilterNonMods}, []string{"alpha", "Charlie", "Delta"}},
		{"favorites", Query{SortBy: SortByName, Ascending: true, Filter: FilterFavorites, Favorites: map[string]bool{"com.d": true}}, []string{"Delta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(Apply(library, library, tt.q))
			if !equalNames(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestApplySearchPrefixes(t *testing.T) {
	latest := []Game{
		{GameName: "Alpha", ReleaseName: "Alpha v11", PackageName: "pkg.a", VersionCode: "11"},
		{GameName: "Beta", ReleaseName: "Beta v2", PackageName: "pkg.b", VersionCode: "2"},
	}
	all := []Game{
		{GameName: "Alpha", ReleaseName: "Alpha v10", PackageName: "pkg.a", VersionCode: "10"},
		latest[0],
		latest[1],
	}

	got := Apply(latest, all, Query{Search: "pkg:PKG.A", SortBy: SortByDate, Ascending: true})
	if len(got) != 2 {
		t.Fatalf("Expected 2 versions from pkg search, got %d", len(got))
	}
	if got[0].VersionCode != "10" {
		t.Errorf("Expected older version to be returned, got %s", got[0].VersionCode)
	}

	got = Apply(latest, all, Query{Search: "  Release:alpha v10 ", SortBy: SortByName, Ascending: true})
	if len(got) != 1 || got[0].VersionCode != "10" {
		t.Errorf("Expected release search to find v10, got %+v", got)
	}

	got = Apply(latest, all, Query{Search: "alpha", SortBy: SortByName, Ascending: true})
	if len(got) != 1 || got[0].VersionCode != "11" {
		t.Errorf("Expected plain search over latest only, got %+v", got)
	}

	got = Apply(latest, all, Query{Search: "PKG.B", SortBy: SortByName, Ascending: true})
	if len(got) != 1 || got[0].PackageName != "pkg.b" {
		t.Errorf("Expected package name match, got %+v", got)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	games := []Game{{GameName: "b"}, {GameName: "a"}}
	Apply(games, games, Query{SortBy: SortByName, Ascending: true})
	if games[0].GameName != "b" {
		t.Error("Expected input slice to keep its order")
	}
}

func TestSizeMB(t *testing.T) {
	tests := map[string]float64{
		"1.5 GB":  1536,
		"512 MB":  512,
		"2048 KB": 2,
		"100":     100,
		"unknown": 0,
		"":        0,
		"abc":     0,
		"1 GiB":   0,
	}
	for in, want := range tests {
		if got := SizeMB(in); got != want {
			t.Errorf("SizeMB(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseFilterAndSort(t *testing.T) {
	if f, ok := ParseFilter("NON-MODS"); !ok || f != FilterNonMods {
		t.Errorf("Expected non_mods, got %q %v", f, ok)
	}
	if _, ok := ParseFilter("bogus"); ok {
		t.Error("Expected bogus filter to be rejected")
	}
	if s, ok := ParseSortBy("Popularity"); !ok || s != SortByPopularity {
		t.Errorf("Expected popularity, got %q %v", s, ok)
	}
}
