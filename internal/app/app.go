package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mol-cyberwhip/veteranVR/internal/catalog"
	"github.com/mol-cyberwhip/veteranVR/internal/catalogsync"
	"github.com/mol-cyberwhip/veteranVR/internal/config"
	"github.com/mol-cyberwhip/veteranVR/internal/device"
	"github.com/mol-cyberwhip/veteranVR/internal/extract"
	"github.com/mol-cyberwhip/veteranVR/internal/fileutil"
	"github.com/mol-cyberwhip/veteranVR/internal/gate"
	"github.com/mol-cyberwhip/veteranVR/internal/installer"
	"github.com/mol-cyberwhip/veteranVR/internal/oplog"
	"github.com/mol-cyberwhip/veteranVR/internal/queue"
	"github.com/mol-cyberwhip/veteranVR/internal/remote"
	"github.com/mol-cyberwhip/veteranVR/internal/store"
)

var (
	ErrNotSynced    = errors.New("catalog not synced yet")
	ErrGateNotReady = errors.New("install preconditions not met")
	ErrGameNotFound = errors.New("game not found")
	ErrBusy         = errors.New("operations are still active")
)

const stageUninstall = "uninstall"

// Syncer refreshes the catalog
type Syncer interface {
	Sync(ctx context.Context, force bool) (*catalogsync.Snapshot, error)
}

// Uninstaller removes packages from the device
type Uninstaller interface {
	Uninstall(ctx context.Context, operationID, packageName string, opts installer.UninstallOptions) error
}

// Gate reports whether installs may start
type Gate interface {
	Status(ctx context.Context) gate.Status
}

// Mirror resolves and probes archive chunks
type Mirror interface {
	FetchPublicConfig(ctx context.Context) (catalog.PublicConfig, error)
	FetchText(ctx context.Context, url string) (string, error)
	ProbeChunks(ctx context.Context, chunks []catalog.RemoteChunkFile, parallelism int) ([]remote.ChunkInfo, error)
}

// Deps are the collaborators an App is assembled from
type Deps struct {
	Log              *oplog.Log
	State            *store.Manager
	Syncer           Syncer
	Worker           *queue.Worker
	Uninstaller      Uninstaller
	Gate             Gate
	Mirror           Mirror
	DownloadsDir     string
	ProbeParallelism int
	Logger           *slog.Logger
}

// App is the consumer-facing contract: sync, library reads, the install
// queue, uninstall, logs and the permission gate
type App struct {
	log         *oplog.Log
	state       *store.Manager
	syncer      Syncer
	worker      *queue.Worker
	uninstaller Uninstaller
	gate        Gate
	mirror      Mirror
	downloads   string
	parallelism int
	logger      *slog.Logger

	mu       sync.RWMutex
	snapshot *catalogsync.Snapshot
}

// Assemble builds an App from ready collaborators
func Assemble(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		log:         d.Log,
		state:       d.State,
		syncer:      d.Syncer,
		worker:      d.Worker,
		uninstaller: d.Uninstaller,
		gate:        d.Gate,
		mirror:      d.Mirror,
		downloads:   d.DownloadsDir,
		parallelism: d.ProbeParallelism,
		logger:      logger,
	}
}

// New wires the production stack described by cfg
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	oplogStore, err := oplog.Open(cfg.OpLogPath(), cfg.OpLog.MaxEntries, logger)
	if err != nil {
		return nil, err
	}
	state, err := store.NewManager(cfg.StatePath())
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(remote.Options{
		UserAgent:  cfg.Remote.UserAgent,
		ConfigURLs: cfg.Remote.ConfigURLs,
		Timeout:    cfg.Remote.Timeout,
	})
	extractor := extract.NewService(cfg.Extractor.Path, cfg.BinDir(), logger)
	waiters := device.NewWaiters()

	var (
		session device.Session
		storage device.Storage
		probe   gate.Installer
	)
	switch cfg.Installer.Backend {
	case config.BackendLocal:
		local := device.NewLocal(cfg.Installer.StorageRoot, waiters)
		session, storage, probe = local, local, local
	default:
		adb := device.NewADB(cfg.Installer.ADBPath, cfg.Installer.Serial, waiters, logger)
		session, storage, probe = adb, adb, adb
	}

	bridge := device.NewBridge(session, storage, waiters, oplogStore, cfg.Installer.Timeout)
	worker := queue.NewWorker(client, extractor, bridge, oplogStore, queue.Options{
		DownloadsRoot:    cfg.DownloadsDir(),
		ProbeParallelism: cfg.Remote.ProbeParallelism,
		Logger:           logger,
	})
	syncer := catalogsync.New(client, extractor, oplogStore, catalogsync.Options{
		CacheDir: cfg.CacheDir(),
		MaxAge:   cfg.Catalog.MaxAge,
		Logger:   logger,
	})

	return Assemble(Deps{
		Log:              oplogStore,
		State:            state,
		Syncer:           syncer,
		Worker:           worker,
		Uninstaller:      bridge,
		Gate:             gate.NewChecker(cfg.DownloadsDir(), cfg.Gate.MinFreeBytes, probe, bridge),
		Mirror:           client,
		DownloadsDir:     cfg.DownloadsDir(),
		ProbeParallelism: cfg.Remote.ProbeParallelism,
		Logger:           logger,
	}), nil
}

// Run drives the download worker until ctx is done
func (a *App) Run(ctx context.Context) error {
	return a.worker.Run(ctx)
}

// SyncCatalog refreshes the catalog and records the summary
func (a *App) SyncCatalog(ctx context.Context, force bool) (store.SyncSummary, error) {
	snap, err := a.syncer.Sync(ctx, force)
	if err != nil {
		return store.SyncSummary{}, err
	}

	a.mu.Lock()
	a.snapshot = snap
	a.mu.Unlock()

	a.state.SetLastSync(snap.Summary)
	if err := a.state.Save(); err != nil {
		a.logger.Warn("Failed to save state", "error", err)
	}
	return snap.Summary, nil
}

func (a *App) dataset() (*catalog.Dataset, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.snapshot == nil || a.snapshot.Dataset == nil {
		return nil, ErrNotSynced
	}
	return a.snapshot.Dataset, nil
}

// Library runs a query over the synced catalog. Favorites come from the
// persisted set unless the query carries its own.
func (a *App) Library(q catalog.Query) ([]catalog.Game, error) {
	ds, err := a.dataset()
	if err != nil {
		return nil, err
	}
	if q.Favorites == nil {
		q.Favorites = a.state.FavoriteSet()
	}
	return catalog.Apply(ds.LatestGames, ds.AllVersions, q), nil
}

// FindGame resolves a package name or release name
func (a *App) FindGame(ref string) (catalog.Game, error) {
	ds, err := a.dataset()
	if err != nil {
		return catalog.Game{}, err
	}
	game, ok := ds.FindLatest(ref)
	if !ok {
		return catalog.Game{}, fmt.Errorf("%w: %s", ErrGameNotFound, ref)
	}
	return game, nil
}

// Enqueue resolves ref and queues an install for it
func (a *App) Enqueue(ctx context.Context, ref string) (queue.Operation, error) {
	game, err := a.FindGame(ref)
	if err != nil {
		return queue.Operation{}, err
	}
	return a.EnqueueGame(ctx, game)
}

// EnqueueGame queues an install once the catalog is synced and the gate is open
func (a *App) EnqueueGame(ctx context.Context, game catalog.Game) (queue.Operation, error) {
	if _, err := a.dataset(); err != nil {
		return queue.Operation{}, err
	}
	if status := a.gate.Status(ctx); !status.Ready() {
		return queue.Operation{}, fmt.Errorf("%w: %s", ErrGateNotReady, strings.Join(status.Reasons(), "; "))
	}

	id, _ := a.worker.Enqueue(game)
	op, _ := a.worker.Get(id)
	return op, nil
}

func (a *App) Pause(id string) error {
	return a.worker.Pause(id)
}

func (a *App) Resume(id string) error {
	return a.worker.Resume(id)
}

func (a *App) Cancel(id string) error {
	return a.worker.Cancel(id)
}

// Operations returns every download operation in enqueue order
func (a *App) Operations() []queue.Operation {
	return a.worker.Operations()
}

// Operation returns a single snapshot
func (a *App) Operation(id string) (queue.Operation, error) {
	op, ok := a.worker.Get(id)
	if !ok {
		return queue.Operation{}, queue.ErrNotFound
	}
	return op, nil
}

// Subscribe streams operation snapshots
func (a *App) Subscribe(buffer int) (<-chan queue.Operation, func()) {
	return a.worker.Subscribe(buffer)
}

// Uninstall removes a package and returns the operation id used for logging
func (a *App) Uninstall(ctx context.Context, packageName string, opts installer.UninstallOptions) (string, error) {
	if !installer.ValidPackageName(packageName) {
		return "", fmt.Errorf("invalid package name %q", packageName)
	}

	id := "uninstall-" + uuid.NewString()
	a.log.Append(id, stageUninstall, oplog.LevelInfo, "Uninstall requested", packageName)
	if err := a.uninstaller.Uninstall(ctx, id, packageName, opts); err != nil {
		a.log.Append(id, stageUninstall, oplog.LevelError, "Uninstall failed", err.Error())
		return id, err
	}
	return id, nil
}

// Logs returns the newest entries, optionally for a single operation.
// limit <= 0 returns everything.
func (a *App) Logs(operationID string, limit int) []oplog.Entry {
	var entries []oplog.Entry
	if operationID != "" {
		entries = a.log.ForOperation(operationID)
	} else {
		entries = a.log.Entries()
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries
}

// PermissionStatus evaluates the install gate
func (a *App) PermissionStatus(ctx context.Context) gate.Status {
	return a.gate.Status(ctx)
}

// LastSync returns the persisted summary of the most recent sync
func (a *App) LastSync() (store.SyncSummary, bool) {
	return a.state.LastSync()
}

// AddFavorite marks a package and persists the set
func (a *App) AddFavorite(packageName string) (bool, error) {
	added := a.state.AddFavorite(packageName)
	if !added {
		return false, nil
	}
	return true, a.state.Save()
}

// RemoveFavorite unmarks a package and persists the set
func (a *App) RemoveFavorite(packageName string) (bool, error) {
	removed := a.state.RemoveFavorite(packageName)
	if !removed {
		return false, nil
	}
	return true, a.state.Save()
}

func (a *App) Favorites() []store.Favorite {
	return a.state.Favorites()
}

// ChunkPlan lists and probes the archive volumes of a release
func (a *App) ChunkPlan(ctx context.Context, ref string) (catalog.Game, []remote.ChunkInfo, error) {
	game, err := a.FindGame(ref)
	if err != nil {
		return catalog.Game{}, nil, err
	}

	cfg, err := a.publicConfig(ctx)
	if err != nil {
		return game, nil, err
	}
	hash := catalog.ContentHash(game.ReleaseName)
	index, err := a.mirror.FetchText(ctx, catalog.IndexURL(cfg.BaseURI, hash))
	if err != nil {
		return game, nil, err
	}
	chunks := catalog.GameChunks(cfg.BaseURI, hash, index)
	if len(chunks) == 0 {
		return game, nil, fmt.Errorf("no archive chunks found for %s", game.ReleaseName)
	}
	infos, err := a.mirror.ProbeChunks(ctx, chunks, a.parallelism)
	if err != nil {
		return game, nil, err
	}
	return game, infos, nil
}

func (a *App) publicConfig(ctx context.Context) (catalog.PublicConfig, error) {
	a.mu.RLock()
	snap := a.snapshot
	a.mu.RUnlock()
	if snap != nil && snap.Config.BaseURI != "" {
		return snap.Config, nil
	}
	return a.mirror.FetchPublicConfig(ctx)
}

// CleanResult reports what Clean removed
type CleanResult struct {
	Removed    []string `json:"removed"`
	FreedBytes int64    `json:"freed_bytes"`
	Kept       []string `json:"kept"`
}

// Clean removes leftover download directories whose name matches pattern
// (every directory when pattern is empty). Chunks belonging to a paused or
// failed operation are kept so it can still resume.
func (a *App) Clean(pattern string) (CleanResult, error) {
	var result CleanResult
	if a.worker.Busy() {
		return result, ErrBusy
	}

	keep := make(map[string]bool)
	for _, op := range a.worker.Operations() {
		if op.State == queue.StatePaused || op.State == queue.StateFailed {
			keep[catalog.ContentHash(op.ReleaseName)] = true
			keep[op.ReleaseName] = true
		}
	}

	entries, err := fileutil.ListDir(a.downloads)
	if err != nil {
		return result, err
	}
	if pattern != "" {
		if entries, err = fileutil.FilterFilesByPattern(entries, pattern); err != nil {
			return result, err
		}
	}
	for _, e := range entries {
		name := filepath.Base(e.Path)
		if keep[name] {
			result.Kept = append(result.Kept, name)
			continue
		}
		if err := os.RemoveAll(e.Path); err != nil {
			return result, fmt.Errorf("failed to remove %s: %w", e.Path, err)
		}
		result.Removed = append(result.Removed, name)
		result.FreedBytes += e.Size
	}
	return result, nil
}
