package store

import "time"

// SyncSummary describes the most recent catalog sync
type SyncSummary struct {
	LastSync   time.Time `json:"last_sync"`
	GamesCount int       `json:"games_count"`
	UsedCache  bool      `json:"used_cache"`
}

// Favorite is a package the user marked
type Favorite struct {
	PackageName string    `json:"package_name"`
	AddedAt     time.Time `json:"added_at"`
}

// StateData represents everything persisted in state.json
type StateData struct {
	Favorites map[string]Favorite `json:"favorites"` // key is package name
	LastSync  *SyncSummary        `json:"last_sync,omitempty"`
}
