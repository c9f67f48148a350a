package catalog

import "strings"

// Game is one parsed catalog row
type Game struct {
	GameName       string `json:"game_name"`
	ReleaseName    string `json:"release_name"`
	PackageName    string `json:"package_name"`
	VersionCode    string `json:"version_code"`
	VersionName    string `json:"version_name,omitempty"`
	ReleaseAPKPath string `json:"release_apk_path,omitempty"`
	Downloads      string `json:"downloads,omitempty"`
	Size           string `json:"size,omitempty"`
	LastUpdated    string `json:"last_updated,omitempty"`
	PopularityRank int    `json:"popularity_rank"`
	IsNew          bool   `json:"is_new"`
}

// IsModded reports whether the game or release name carries a mod marker
func (g Game) IsModded() bool {
	name := strings.ToLower(g.GameName + " " + g.ReleaseName)
	return strings.Contains(name, "-mod") ||
		strings.Contains(name, " mod ") ||
		strings.Contains(name, "modded")
}

// Dataset holds the result of parsing a catalog feed.
// LatestGames has one entry per (package, game name) key in first-seen order.
type Dataset struct {
	LatestGames []Game `json:"latest_games"`
	AllVersions []Game `json:"all_versions"`
}

// FindLatest returns the newest entry for a package name, or a release name match
func (d *Dataset) FindLatest(ref string) (Game, bool) {
	for _, g := range d.LatestGames {
		if g.PackageName == ref {
			return g, true
		}
	}
	for _, g := range d.AllVersions {
		if g.ReleaseName == ref {
			return g, true
		}
	}
	return Game{}, false
}

// PublicConfig is the mirror configuration served as JSON
type PublicConfig struct {
	BaseURI  string `json:"base_uri"`
	Password string `json:"-"`
}

// RemoteChunkFile is one physical volume of a remote archive
type RemoteChunkFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
