package mcp

import (
	"time"

	"github.com/mol-cyberwhip/veteranVR/internal/oplog"
	"github.com/mol-cyberwhip/veteranVR/internal/queue"
)

// SyncCatalogInput represents input for the sync_catalog tool
type SyncCatalogInput struct {
	Force bool `json:"force,omitempty" jsonschema:"ignore the cached catalog and download meta.7z again"`
}

// SyncCatalogOutput represents output from the sync_catalog tool
type SyncCatalogOutput struct {
	LastSync   string `json:"last_sync"`
	GamesCount int    `json:"games_count"`
	UsedCache  bool   `json:"used_cache"`
}

// GetLibraryInput represents input for the get_library tool
type GetLibraryInput struct {
	Search    string `json:"search,omitempty" jsonschema:"substring search; prefix with release: or pkg: to search every version"`
	Filter    string `json:"filter,omitempty" jsonschema:"all, favorites, new, popular or non_mods"`
	SortBy    string `json:"sort_by,omitempty" jsonschema:"name, date, size or popularity (default popularity)"`
	Ascending bool   `json:"ascending,omitempty" jsonschema:"keep the natural sort order instead of reversing it"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of games to return (default 50)"`
}

// GetLibraryOutput represents output from the get_library tool
type GetLibraryOutput struct {
	Games []GameInfo `json:"games"`
	Total int        `json:"total"`
}

// GameInfo represents a single catalog entry
type GameInfo struct {
	GameName       string `json:"game_name"`
	ReleaseName    string `json:"release_name"`
	PackageName    string `json:"package_name"`
	VersionCode    string `json:"version_code"`
	VersionName    string `json:"version_name,omitempty"`
	Size           string `json:"size"`
	LastUpdated    string `json:"last_updated"`
	PopularityRank int    `json:"popularity_rank"`
	IsNew          bool   `json:"is_new"`
	IsModded       bool   `json:"is_modded"`
	IsFavorite     bool   `json:"is_favorite"`
}

// EnqueueInstallInput represents input for the enqueue_install tool
type EnqueueInstallInput struct {
	Ref string `json:"ref" jsonschema:"package name or release name to install"`
}

// OperationIDInput represents input for the pause, resume and cancel tools
type OperationIDInput struct {
	OperationID string `json:"operation_id" jsonschema:"id returned by enqueue_install"`
}

// OperationInfo is a download operation snapshot
type OperationInfo struct {
	OperationID     string  `json:"operation_id"`
	PackageName     string  `json:"package_name"`
	ReleaseName     string  `json:"release_name"`
	State           string  `json:"state"`
	ProgressPercent float64 `json:"progress_percent"`
	BytesDone       int64   `json:"bytes_done"`
	BytesTotal      int64   `json:"bytes_total"`
	SpeedBps        int64   `json:"speed_bps"`
	EtaSeconds      int64   `json:"eta_seconds"`
	Message         string  `json:"message"`
	StateVersion    uint64  `json:"state_version"`
	Terminal        bool    `json:"terminal"`
	UpdatedAt       string  `json:"updated_at"`
}

func toOperationInfo(op queue.Operation) OperationInfo {
	return OperationInfo{
		OperationID:     op.ID,
		PackageName:     op.PackageName,
		ReleaseName:     op.ReleaseName,
		State:           string(op.State),
		ProgressPercent: op.ProgressPercent,
		BytesDone:       op.BytesDone,
		BytesTotal:      op.BytesTotal,
		SpeedBps:        op.SpeedBps,
		EtaSeconds:      op.EtaSeconds,
		Message:         op.Message,
		StateVersion:    op.StateVersion,
		Terminal:        op.Terminal(),
		UpdatedAt:       op.UpdatedAt.Format(time.RFC3339),
	}
}

// OperationOutput wraps a single operation snapshot
type OperationOutput struct {
	Operation OperationInfo `json:"operation"`
}

// UninstallInput represents input for the uninstall_package tool
type UninstallInput struct {
	PackageName string `json:"package_name" jsonschema:"Android package name to remove"`
	KeepObb     bool   `json:"keep_obb,omitempty" jsonschema:"keep /sdcard/Android/obb/<package>"`
	KeepData    bool   `json:"keep_data,omitempty" jsonschema:"keep /sdcard/Android/data/<package>"`
}

// UninstallOutput represents output from the uninstall_package tool
type UninstallOutput struct {
	Success     bool   `json:"success"`
	OperationID string `json:"operation_id"`
	Error       string `json:"error,omitempty"`
}

// ListOperationsInput represents input for the list_operations tool
type ListOperationsInput struct {
	ActiveOnly bool `json:"active_only,omitempty" jsonschema:"only return operations that are not terminal"`
}

// ListOperationsOutput represents output from the list_operations tool
type ListOperationsOutput struct {
	Operations []OperationInfo `json:"operations"`
	Total      int             `json:"total"`
}

// ListLogsInput represents input for the list_logs tool
type ListLogsInput struct {
	OperationID string `json:"operation_id,omitempty" jsonschema:"only return entries for this operation"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of newest entries (default 100)"`
}

// ListLogsOutput represents output from the list_logs tool
type ListLogsOutput struct {
	Entries []oplog.Entry `json:"entries"`
	Total   int           `json:"total"`
}

// PermissionStatusInput represents input for the permission_status tool
type PermissionStatusInput struct{}

// PermissionStatusOutput represents output from the permission_status tool
type PermissionStatusOutput struct {
	CanInstallPackages bool     `json:"can_install_packages"`
	HasAllFilesAccess  bool     `json:"has_all_files_access"`
	FreeBytes          int64    `json:"free_bytes"`
	MinRequiredBytes   int64    `json:"min_required_bytes"`
	DeviceFreeBytes    int64    `json:"device_free_bytes"`
	Ready              bool     `json:"ready"`
	Reasons            []string `json:"reasons,omitempty"`
}

// FavoriteInput represents input for the favorite tool
type FavoriteInput struct {
	Action      string `json:"action" jsonschema:"add, remove or list"`
	PackageName string `json:"package_name,omitempty" jsonschema:"package to add or remove"`
}

// FavoriteOutput represents output from the favorite tool
type FavoriteOutput struct {
	Changed   bool     `json:"changed"`
	Favorites []string `json:"favorites"`
}
