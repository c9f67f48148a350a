package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mol-cyberwhip/veteranVR/internal/catalog"
	"github.com/mol-cyberwhip/veteranVR/internal/installer"
)

const (
	defaultLibraryLimit = 50
	defaultLogLimit     = 100
)

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// handleSyncCatalog handles the sync_catalog tool
func (s *Server) handleSyncCatalog(ctx context.Context, req *mcp.CallToolRequest, input SyncCatalogInput) (*mcp.CallToolResult, SyncCatalogOutput, error) {
	output := SyncCatalogOutput{}

	summary, err := s.app.SyncCatalog(ctx, input.Force)
	if err != nil {
		return nil, output, fmt.Errorf("sync failed: %w", err)
	}

	output.LastSync = summary.LastSync.Format(time.RFC3339)
	output.GamesCount = summary.GamesCount
	output.UsedCache = summary.UsedCache

	source := "network"
	if summary.UsedCache {
		source = "cache"
	}
	return textResult("Catalog synced from %s: %d titles", source, summary.GamesCount), output, nil
}

// handleGetLibrary handles the get_library tool
func (s *Server) handleGetLibrary(ctx context.Context, req *mcp.CallToolRequest, input GetLibraryInput) (*mcp.CallToolResult, GetLibraryOutput, error) {
	output := GetLibraryOutput{Games: []GameInfo{}}

	q := catalog.DefaultQuery()
	q.Search = input.Search
	q.Ascending = input.Ascending
	if input.SortBy != "" {
		sortBy, ok := catalog.ParseSortBy(input.SortBy)
		if !ok {
			return nil, output, fmt.Errorf("unknown sort_by: %s", input.SortBy)
		}
		q.SortBy = sortBy
	}
	if input.Filter != "" {
		filter, ok := catalog.ParseFilter(input.Filter)
		if !ok {
			return nil, output, fmt.Errorf("unknown filter: %s", input.Filter)
		}
		q.Filter = filter
	}

	games, err := s.app.Library(q)
	if err != nil {
		return nil, output, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultLibraryLimit
	}
	output.Total = len(games)
	if len(games) > limit {
		games = games[:limit]
	}

	favorites := make(map[string]bool)
	for _, f := range s.app.Favorites() {
		favorites[f.PackageName] = true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d games (showing %d)\n", output.Total, len(games))
	for _, g := range games {
		output.Games = append(output.Games, GameInfo{
			GameName:       g.GameName,
			ReleaseName:    g.ReleaseName,
			PackageName:    g.PackageName,
			VersionCode:    g.VersionCode,
			VersionName:    g.VersionName,
			Size:           g.Size,
			LastUpdated:    g.LastUpdated,
			PopularityRank: g.PopularityRank,
			IsNew:          g.IsNew,
			IsModded:       g.IsModded(),
			IsFavorite:     favorites[g.PackageName],
		})
		fmt.Fprintf(&sb, "- %s (%s) %s\n", g.GameName, g.PackageName, g.Size)
	}

	return textResult("%s", sb.String()), output, nil
}

// handleEnqueueInstall handles the enqueue_install tool
func (s *Server) handleEnqueueInstall(ctx context.Context, req *mcp.CallToolRequest, input EnqueueInstallInput) (*mcp.CallToolResult, OperationOutput, error) {
	output := OperationOutput{}

	if input.Ref == "" {
		return nil, output, fmt.Errorf("ref is required")
	}

	op, err := s.app.Enqueue(ctx, input.Ref)
	if err != nil {
		return nil, output, err
	}
	output.Operation = toOperationInfo(op)
	return textResult("Queued %s as %s (%s)", op.ReleaseName, op.ID, op.State), output, nil
}

// handlePause handles the pause_operation tool
func (s *Server) handlePause(ctx context.Context, req *mcp.CallToolRequest, input OperationIDInput) (*mcp.CallToolResult, OperationOutput, error) {
	return s.control(input, "paused", s.app.Pause)
}

// handleResume handles the resume_operation tool
func (s *Server) handleResume(ctx context.Context, req *mcp.CallToolRequest, input OperationIDInput) (*mcp.CallToolResult, OperationOutput, error) {
	return s.control(input, "resumed", s.app.Resume)
}

// handleCancel handles the cancel_operation tool
func (s *Server) handleCancel(ctx context.Context, req *mcp.CallToolRequest, input OperationIDInput) (*mcp.CallToolResult, OperationOutput, error) {
	return s.control(input, "cancelled", s.app.Cancel)
}

func (s *Server) control(input OperationIDInput, verb string, fn func(id string) error) (*mcp.CallToolResult, OperationOutput, error) {
	output := OperationOutput{}

	if input.OperationID == "" {
		return nil, output, fmt.Errorf("operation_id is required")
	}
	if err := fn(input.OperationID); err != nil {
		return nil, output, err
	}
	op, err := s.app.Operation(input.OperationID)
	if err != nil {
		return nil, output, err
	}
	output.Operation = toOperationInfo(op)
	return textResult("Operation %s %s: now %s", op.ID, verb, op.State), output, nil
}

// handleUninstall handles the uninstall_package tool
func (s *Server) handleUninstall(ctx context.Context, req *mcp.CallToolRequest, input UninstallInput) (*mcp.CallToolResult, UninstallOutput, error) {
	output := UninstallOutput{}

	if input.PackageName == "" {
		return nil, output, fmt.Errorf("package_name is required")
	}

	id, err := s.app.Uninstall(ctx, input.PackageName, installer.UninstallOptions{
		KeepObb:  input.KeepObb,
		KeepData: input.KeepData,
	})
	output.OperationID = id
	if err != nil {
		output.Error = err.Error()
		return textResult("Uninstall failed: %v", err), output, nil
	}

	output.Success = true
	return textResult("Uninstalled %s", input.PackageName), output, nil
}

// handleListOperations handles the list_operations tool
func (s *Server) handleListOperations(ctx context.Context, req *mcp.CallToolRequest, input ListOperationsInput) (*mcp.CallToolResult, ListOperationsOutput, error) {
	output := ListOperationsOutput{Operations: []OperationInfo{}}

	var sb strings.Builder
	for _, op := range s.app.Operations() {
		if input.ActiveOnly && op.Terminal() {
			continue
		}
		output.Operations = append(output.Operations, toOperationInfo(op))
		fmt.Fprintf(&sb, "%s %s %s %.0f%% %s\n", op.ID, op.PackageName, op.State, op.ProgressPercent, op.Message)
	}
	output.Total = len(output.Operations)

	if output.Total == 0 {
		return textResult("No operations"), output, nil
	}
	return textResult("%s", sb.String()), output, nil
}

// handleListLogs handles the list_logs tool
func (s *Server) handleListLogs(ctx context.Context, req *mcp.CallToolRequest, input ListLogsInput) (*mcp.CallToolResult, ListLogsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}
	entries := s.app.Logs(input.OperationID, limit)
	output := ListLogsOutput{Entries: entries, Total: len(entries)}

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s [%s] %s %s: %s\n", e.Time().Format(time.RFC3339), e.Level, e.OperationID, e.Stage, e.Message)
	}
	return textResult("%s", sb.String()), output, nil
}

// handlePermissionStatus handles the permission_status tool
func (s *Server) handlePermissionStatus(ctx context.Context, req *mcp.CallToolRequest, input PermissionStatusInput) (*mcp.CallToolResult, PermissionStatusOutput, error) {
	status := s.app.PermissionStatus(ctx)
	output := PermissionStatusOutput{
		CanInstallPackages: status.CanInstallPackages,
		HasAllFilesAccess:  status.HasAllFilesAccess,
		FreeBytes:          status.FreeBytes,
		MinRequiredBytes:   status.MinRequiredBytes,
		DeviceFreeBytes:    status.DeviceFreeBytes,
		Ready:              status.Ready(),
		Reasons:            status.Reasons(),
	}

	if output.Ready {
		return textResult("Ready to install"), output, nil
	}
	return textResult("Not ready: %s", strings.Join(output.Reasons, "; ")), output, nil
}

// handleFavorite handles the favorite tool
func (s *Server) handleFavorite(ctx context.Context, req *mcp.CallToolRequest, input FavoriteInput) (*mcp.CallToolResult, FavoriteOutput, error) {
	output := FavoriteOutput{}

	var err error
	switch strings.ToLower(input.Action) {
	case "add":
		if input.PackageName == "" {
			return nil, output, fmt.Errorf("package_name is required")
		}
		output.Changed, err = s.app.AddFavorite(input.PackageName)
	case "remove":
		if input.PackageName == "" {
			return nil, output, fmt.Errorf("package_name is required")
		}
		output.Changed, err = s.app.RemoveFavorite(input.PackageName)
	case "list", "":
	default:
		return nil, output, fmt.Errorf("unknown action: %s (must be add, remove or list)", input.Action)
	}
	if err != nil {
		return nil, output, err
	}

	output.Favorites = []string{}
	for _, f := range s.app.Favorites() {
		output.Favorites = append(output.Favorites, f.PackageName)
	}
	return textResult("Favorites: %s", strings.Join(output.Favorites, ", ")), output, nil
}

