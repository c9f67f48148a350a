package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mol-cyberwhip/veteranVR/internal/app"
	"github.com/mol-cyberwhip/veteranVR/internal/catalog"
	"github.com/mol-cyberwhip/veteranVR/internal/catalogsync"
	"github.com/mol-cyberwhip/veteranVR/internal/gate"
	"github.com/mol-cyberwhip/veteranVR/internal/installer"
	"github.com/mol-cyberwhip/veteranVR/internal/oplog"
	"github.com/mol-cyberwhip/veteranVR/internal/queue"
	"github.com/mol-cyberwhip/veteranVR/internal/store"
)

const testFeed = `Game Name;Release Name;Package Name;Version Code;Last Updated;Size (MB);Downloads
Alpha;Alpha v10+1.0;pkg.a;10;2024-01-01 10:00 UTC;512;120
Alpha;Alpha v11+1.1;pkg.a;11;2024-02-01 10:00 UTC;520;130
Beta;Beta v2+0.2;pkg.b;2;2024-01-05 10:00 UTC;1.5 GB;40
`

type stubSyncer struct{}

func (stubSyncer) Sync(ctx context.Context, force bool) (*catalogsync.Snapshot, error) {
	ds := catalog.Parse(testFeed, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
	return &catalogsync.Snapshot{
		Dataset: ds,
		Summary: store.SyncSummary{LastSync: time.Now(), GamesCount: len(ds.LatestGames), UsedCache: !force},
	}, nil
}

type stubGate struct {
	status gate.Status
}

func (g stubGate) Status(ctx context.Context) gate.Status { return g.status }

type stubUninstaller struct {
	err error
}

func (u stubUninstaller) Uninstall(ctx context.Context, operationID, packageName string, opts installer.UninstallOptions) error {
	return u.err
}

func newTestServer(t *testing.T, status gate.Status, unErr error) *Server {
	t.Helper()
	dir := t.TempDir()
	log, err := oplog.Open("", 100, nil)
	if err != nil {
		t.Fatal(err)
	}
	state, err := store.NewManager(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	downloads := filepath.Join(dir, "downloads")
	if err := os.MkdirAll(downloads, 0755); err != nil {
		t.Fatal(err)
	}
	a := app.Assemble(app.Deps{
		Log:          log,
		State:        state,
		Syncer:       stubSyncer{},
		Worker:       queue.NewWorker(nil, nil, nil, log, queue.Options{DownloadsRoot: downloads}),
		Uninstaller:  stubUninstaller{err: unErr},
		Gate:         stubGate{status: status},
		DownloadsDir: downloads,
	})
	return NewServer(a, "test")
}

var readyStatus = gate.Status{CanInstallPackages: true, HasAllFilesAccess: true, FreeBytes: 10, MinRequiredBytes: 1}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("Expected text content in result")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("Expected *mcp.TextContent, got %T", res.Content[0])
	}
	return text.Text
}

func TestGetLibraryBeforeSync(t *testing.T) {
	s := newTestServer(t, readyStatus, nil)

	_, _, err := s.handleGetLibrary(context.Background(), nil, GetLibraryInput{})
	if !errors.Is(err, app.ErrNotSynced) {
		t.Errorf("Expected ErrNotSynced, got %v", err)
	}
}

func TestSyncAndGetLibrary(t *testing.T) {
	s := newTestServer(t, readyStatus, nil)
	ctx := context.Background()

	res, out, err := s.handleSyncCatalog(ctx, nil, SyncCatalogInput{Force: true})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if out.GamesCount != 2 || out.UsedCache {
		t.Errorf("Expected 2 games from network, got %+v", out)
	}
	if !strings.Contains(resultText(t, res), "network") {
		t.Errorf("Expected network source in text, got %q", resultText(t, res))
	}

	if _, _, err := s.handleFavorite(ctx, nil, FavoriteInput{Action: "add", PackageName: "pkg.b"}); err != nil {
		t.Fatalf("favorite add failed: %v", err)
	}

	_, lib, err := s.handleGetLibrary(ctx, nil, GetLibraryInput{SortBy: "name", Ascending: true})
	if err != nil {
		t.Fatalf("get_library failed: %v", err)
	}
	if lib.Total != 2 || len(lib.Games) != 2 {
		t.Fatalf("Expected 2 games, got %+v", lib)
	}
	if lib.Games[0].PackageName != "pkg.a" || lib.Games[0].ReleaseName != "Alpha v11+1.1" {
		t.Errorf("Expected newest Alpha first, got %+v", lib.Games[0])
	}
	if !lib.Games[1].IsFavorite || lib.Games[0].IsFavorite {
		t.Errorf("Expected only pkg.b flagged as favorite, got %+v", lib.Games)
	}

	_, limited, err := s.handleGetLibrary(ctx, nil, GetLibraryInput{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if limited.Total != 2 || len(limited.Games) != 1 {
		t.Errorf("Expected total 2 with 1 game returned, got total %d, %d games", limited.Total, len(limited.Games))
	}
}

func TestGetLibraryRejectsUnknownOptions(t *testing.T) {
	s := newTestServer(t, readyStatus, nil)
	ctx := context.Background()
	if _, _, err := s.handleSyncCatalog(ctx, nil, SyncCatalogInput{}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.handleGetLibrary(ctx, nil, GetLibraryInput{SortBy: "weight"}); err == nil {
		t.Error("Expected error for unknown sort_by")
	}
	if _, _, err := s.handleGetLibrary(ctx, nil, GetLibraryInput{Filter: "cheap"}); err == nil {
		t.Error("Expected error for unknown filter")
	}
}

func TestEnqueueAndControl(t *testing.T) {
	s := newTestServer(t, readyStatus, nil)
	ctx := context.Background()
	if _, _, err := s.handleSyncCatalog(ctx, nil, SyncCatalogInput{}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.handleEnqueueInstall(ctx, nil, EnqueueInstallInput{}); err == nil {
		t.Error("Expected error for empty ref")
	}

	_, out, err := s.handleEnqueueInstall(ctx, nil, EnqueueInstallInput{Ref: "pkg.a"})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if out.Operation.State != string(queue.StateQueued) {
		t.Errorf("Expected QUEUED, got %s", out.Operation.State)
	}
	id := out.Operation.OperationID

	_, paused, err := s.handlePause(ctx, nil, OperationIDInput{OperationID: id})
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if paused.Operation.State != string(queue.StateQueued) {
		t.Errorf("Expected pause of queued op to be a no-op, got %s", paused.Operation.State)
	}

	_, cancelled, err := s.handleCancel(ctx, nil, OperationIDInput{OperationID: id})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Operation.State != string(queue.StateCancelled) || !cancelled.Operation.Terminal {
		t.Errorf("Expected terminal CANCELLED, got %+v", cancelled.Operation)
	}

	_, active, err := s.handleListOperations(ctx, nil, ListOperationsInput{ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if active.Total != 0 {
		t.Errorf("Expected no active operations, got %d", active.Total)
	}

	_, all, err := s.handleListOperations(ctx, nil, ListOperationsInput{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 1 {
		t.Errorf("Expected 1 operation, got %d", all.Total)
	}

	if _, _, err := s.handleResume(ctx, nil, OperationIDInput{OperationID: "missing"}); !errors.Is(err, queue.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.handlePause(ctx, nil, OperationIDInput{}); err == nil {
		t.Error("Expected error for empty operation_id")
	}
}

func TestEnqueueBlockedByGate(t *testing.T) {
	s := newTestServer(t, gate.Status{}, nil)
	ctx := context.Background()
	if _, _, err := s.handleSyncCatalog(ctx, nil, SyncCatalogInput{}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.handleEnqueueInstall(ctx, nil, EnqueueInstallInput{Ref: "pkg.a"}); !errors.Is(err, app.ErrGateNotReady) {
		t.Errorf("Expected ErrGateNotReady, got %v", err)
	}

	res, status, err := s.handlePermissionStatus(ctx, nil, PermissionStatusInput{})
	if err != nil {
		t.Fatal(err)
	}
	if status.Ready || len(status.Reasons) == 0 {
		t.Errorf("Expected not ready with reasons, got %+v", status)
	}
	if !strings.HasPrefix(resultText(t, res), "Not ready") {
		t.Errorf("Expected not ready text, got %q", resultText(t, res))
	}
}

func TestUninstallReportsFailure(t *testing.T) {
	s := newTestServer(t, readyStatus, errors.New("device offline"))
	ctx := context.Background()

	if _, _, err := s.handleUninstall(ctx, nil, UninstallInput{}); err == nil {
		t.Error("Expected error for empty package_name")
	}

	_, out, err := s.handleUninstall(ctx, nil, UninstallInput{PackageName: "pkg.a"})
	if err != nil {
		t.Fatalf("Expected failure in output, got error %v", err)
	}
	if out.Success || !strings.Contains(out.Error, "device offline") {
		t.Errorf("Expected failed uninstall output, got %+v", out)
	}
	if !strings.HasPrefix(out.OperationID, "uninstall-") {
		t.Errorf("Expected uninstall- operation id, got %q", out.OperationID)
	}

	_, logs, err := s.handleListLogs(ctx, nil, ListLogsInput{OperationID: out.OperationID})
	if err != nil {
		t.Fatal(err)
	}
	if logs.Total == 0 {
		t.Error("Expected log entries for the uninstall operation")
	}
}

func TestFavoriteActions(t *testing.T) {
	s := newTestServer(t, readyStatus, nil)
	ctx := context.Background()

	_, out, err := s.handleFavorite(ctx, nil, FavoriteInput{Action: "add", PackageName: "pkg.a"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Changed || len(out.Favorites) != 1 {
		t.Errorf("Expected favorite added, got %+v", out)
	}

	_, out, err = s.handleFavorite(ctx, nil, FavoriteInput{Action: "add", PackageName: "pkg.a"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Changed {
		t.Error("Expected second add to report no change")
	}

	_, out, err = s.handleFavorite(ctx, nil, FavoriteInput{Action: "remove", PackageName: "pkg.a"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Changed || len(out.Favorites) != 0 {
		t.Errorf("Expected favorite removed, got %+v", out)
	}

	if _, _, err := s.handleFavorite(ctx, nil, FavoriteInput{Action: "toggle", PackageName: "pkg.a"}); err == nil {
		t.Error("Expected error for unknown action")
	}
}
