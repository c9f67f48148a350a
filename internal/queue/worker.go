package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mol-cyberwhip/veteranVR/internal/catalog"
	"github.com/mol-cyberwhip/veteranVR/internal/extract"
	"github.com/mol-cyberwhip/veteranVR/internal/fileutil"
	"github.com/mol-cyberwhip/veteranVR/internal/installer"
	"github.com/mol-cyberwhip/veteranVR/internal/oplog"
	"github.com/mol-cyberwhip/veteranVR/internal/remote"
)

const (
	DefaultIdleInterval     = 250 * time.Millisecond
	DefaultProgressInterval = 500 * time.Millisecond

	stageQueue    = "queue"
	stageDownload = "download"
	stageExtract  = "extract"
	stageInstall  = "install"
)

var (
	// ErrNotFound is returned for unknown operation ids
	ErrNotFound      = errors.New("operation not found")
	// ErrPackageActive is returned when another operation already owns the package
	ErrPackageActive = errors.New("another operation is active for the package")

	errPaused    = errors.New("download paused")
	errCancelled = errors.New("operation cancelled")
)

// Remote is the network side of the pipeline, satisfied by *remote.Client
type Remote interface {
	FetchPublicConfig(ctx context.Context) (catalog.PublicConfig, error)
	FetchText(ctx context.Context, url string) (string, error)
	ProbeChunks(ctx context.Context, chunks []catalog.RemoteChunkFile, parallelism int) ([]remote.ChunkInfo, error)
	Download(ctx context.Context, url, dest string, resume bool, onChunk func(n int64) error) error
}

// Installer applies an extracted release to the device
type Installer interface {
	Install(ctx context.Context, operationID, gameDir, packageName string) (installer.Report, error)
}

// Options configures a Worker
type Options struct {
	DownloadsRoot    string
	ProbeParallelism int
	IdleInterval     time.Duration
	ProgressInterval time.Duration
	Logger           *slog.Logger
}

type entry struct {
	op     Operation
	game   catalog.Game
	pause  atomic.Bool
	cancel atomic.Bool
}

// signal reports a pending pause or cancel without taking the worker lock
func (e *entry) signal() error {
	if e.cancel.Load() {
		return errCancelled
	}
	if e.pause.Load() {
		return errPaused
	}
	return nil
}

// Worker owns the operation list and drives one operation at a time
type Worker struct {
	mu      sync.Mutex
	entries []*entry
	byID    map[string]*entry
	running string
	subs    map[int]chan Operation
	nextSub int
	wake    chan struct{}

	remote    Remote
	extractor extract.Extractor
	installer Installer
	log       oplog.Recorder
	logger    *slog.Logger
	opts      Options
	now       func() time.Time
}

// NewWorker creates a worker. Run must be called to start processing.
func NewWorker(r Remote, extractor extract.Extractor, inst Installer, log oplog.Recorder, opts Options) *Worker {
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultIdleInterval
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.ProbeParallelism <= 0 {
		opts.ProbeParallelism = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		byID:      make(map[string]*entry),
		subs:      make(map[int]chan Operation),
		wake:      make(chan struct{}, 1),
		remote:    r,
		extractor: extractor,
		installer: inst,
		log:       log,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// generateOperationID returns a time ordered id
func generateOperationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("op-%d", time.Now().UnixNano())
	}
	return id.String()
}

// Enqueue adds an install request for game and returns its operation id.
// A non-terminal operation for the same package is reused.
func (w *Worker) Enqueue(game catalog.Game) (string, bool) {
	w.mu.Lock()
	for _, e := range w.entries {
		if e.op.PackageName == game.PackageName && !e.op.State.Terminal() {
			id := e.op.ID
			w.mu.Unlock()
			return id, false
		}
	}

	now := w.now()
	e := &entry{
		game: game,
		op: Operation{
			ID:          generateOperationID(),
			PackageName: game.PackageName,
			ReleaseName: game.ReleaseName,
			GameName:    game.GameName,
			State:       StateQueued,
			Message:     "Queued",
			CreatedAt:   now,
		},
	}
	w.touchLocked(e)
	w.entries = append(w.entries, e)
	w.byID[e.op.ID] = e
	id := e.op.ID
	w.mu.Unlock()

	w.log.Append(id, stageQueue, oplog.LevelInfo, "Install queued", game.ReleaseName)
	w.notify()
	return id, true
}

// Pause requests a cooperative pause. Only a downloading operation is affected.
func (w *Worker) Pause(id string) error {
	w.mu.Lock()
	e, ok := w.byID[id]
	if !ok {
		w.mu.Unlock()
		return ErrNotFound
	}
	if e.op.State != StateDownloading {
		w.mu.Unlock()
		return nil
	}
	e.pause.Store(true)
	e.op.State = StatePaused
	e.op.Message = "Pause requested"
	e.op.SpeedBps = 0
	e.op.EtaSeconds = 0
	w.touchLocked(e)
	w.mu.Unlock()

	w.log.Append(id, stageDownload, oplog.LevelInfo, "Pause requested", "")
	return nil
}

// Resume re-queues a paused or failed operation. A failed operation stays
// failed when a newer operation for the same package is not yet terminal.
func (w *Worker) Resume(id string) error {
	w.mu.Lock()
	e, ok := w.byID[id]
	if !ok {
		w.mu.Unlock()
		return ErrNotFound
	}
	switch e.op.State {
	case StatePaused, StateFailed:
	default:
		w.mu.Unlock()
		return nil
	}
	for _, other := range w.entries {
		if other != e && other.op.PackageName == e.op.PackageName && !other.op.State.Terminal() {
			otherID := other.op.ID
			w.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrPackageActive, otherID)
		}
	}

	e.pause.Store(false)
	if w.running == id && e.op.State == StatePaused {
		// the worker has not observed the pause yet and keeps going
		e.op.State = StateDownloading
		e.op.Message = "Downloading"
	} else {
		e.op.State = StateQueued
		e.op.Message = "Queued"
	}
	e.op.SpeedBps = 0
	e.op.EtaSeconds = 0
	w.touchLocked(e)
	w.mu.Unlock()

	w.log.Append(id, stageQueue, oplog.LevelInfo, "Resume requested", "")
	w.notify()
	return nil
}

// Cancel moves any non-terminal operation to CANCELLED.
// Partial downloads of an idle operation are removed right away.
func (w *Worker) Cancel(id string) error {
	w.mu.Lock()
	e, ok := w.byID[id]
	if !ok {
		w.mu.Unlock()
		return ErrNotFound
	}
	if e.op.State.Terminal() {
		w.mu.Unlock()
		return nil
	}
	e.cancel.Store(true)
	e.op.State = StateCancelled
	e.op.Message = "Cancelled"
	e.op.SpeedBps = 0
	e.op.EtaSeconds = 0
	w.touchLocked(e)
	running := w.running == id
	release := e.game.ReleaseName
	w.mu.Unlock()

	w.log.Append(id, stageQueue, oplog.LevelInfo, "Operation cancelled", "")
	if !running {
		w.cleanup(release)
	}
	return nil
}

// Operations returns snapshots in enqueue order
func (w *Worker) Operations() []Operation {
	w.mu.Lock()
	defer w.mu.Unlock()

	ops := make([]Operation, 0, len(w.entries))
	for _, e := range w.entries {
		ops = append(ops, e.op)
	}
	return ops
}

// Get returns the snapshot of a single operation
func (w *Worker) Get(id string) (Operation, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.byID[id]
	if !ok {
		return Operation{}, false
	}
	return e.op, true
}

// Busy reports whether an operation is being processed or waiting to be
func (w *Worker) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running != "" {
		return true
	}
	for _, e := range w.entries {
		if e.op.State == StateQueued {
			return true
		}
	}
	return false
}

// Subscribe delivers every snapshot change. Slow readers miss updates
// rather than stalling the worker. The returned func unsubscribes.
func (w *Worker) Subscribe(buffer int) (<-chan Operation, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Operation, buffer)

	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
			close(ch)
		})
	}
}

// touchLocked bumps the version and publishes the snapshot. Caller holds mu.
func (w *Worker) touchLocked(e *entry) {
	e.op.StateVersion++
	e.op.UpdatedAt = w.now()
	e.op.IsTerminal = e.op.State.Terminal()

	snap := e.op
	for _, ch := range w.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (w *Worker) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run processes queued operations until ctx is done
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Download worker started", "downloads_root", w.opts.DownloadsRoot)
	for {
		e := w.next()
		if e == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-w.wake:
			case <-time.After(w.opts.IdleInterval):
			}
			continue
		}

		err := w.process(ctx, e)
		w.finish(e, err)

		if ctx.Err() != nil {
			return nil
		}
	}
}

// next claims the earliest queued operation
func (w *Worker) next() *entry {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range w.entries {
		if e.op.State == StateQueued {
			w.running = e.op.ID
			return e
		}
	}
	return nil
}

func (w *Worker) finish(e *entry, err error) {
	var (
		logged  bool
		level   oplog.Level
		stage   string
		message string
		details string
	)

	w.mu.Lock()
	w.running = ""
	id := e.op.ID
	cancelled := e.cancel.Load()
	switch {
	case cancelled:
		e.op.State = StateCancelled
	case err == nil:
		e.op.State = StateCompleted
		e.op.ProgressPercent = 100
		e.op.BytesDone = e.op.BytesTotal
		e.op.Message = "Installed"
		logged, level, stage, message, details = true, oplog.LevelInfo, stageInstall, "Install completed", e.op.PackageName
	case errors.Is(err, errPaused):
		if e.pause.Load() {
			e.op.State = StatePaused
			e.op.Message = "Paused"
			logged, level, stage, message = true, oplog.LevelInfo, stageDownload, "Download paused"
		} else {
			e.op.State = StateQueued
			e.op.Message = "Queued"
		}
	default:
		stage = stageFor(e.op.State)
		e.op.State = StateFailed
		e.op.Message = err.Error()
		logged, level, message, details = true, oplog.LevelError, "Operation failed", err.Error()
	}
	e.op.SpeedBps = 0
	e.op.EtaSeconds = 0
	w.touchLocked(e)
	release := e.game.ReleaseName
	w.mu.Unlock()

	if logged {
		w.log.Append(id, stage, level, message, details)
	}
	if cancelled {
		w.cleanup(release)
	}
	w.notify()
}

func stageFor(s State) string {
	switch s {
	case StateExtracting:
		return stageExtract
	case StateInstalling:
		return stageInstall
	default:
		return stageDownload
	}
}

// begin moves a claimed operation to DOWNLOADING with its initial byte counts
func (w *Worker) begin(e *entry, total, done int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := e.signal(); err != nil {
		return err
	}
	e.op.State = StateDownloading
	e.op.BytesTotal = total
	e.op.BytesDone = done
	e.op.ProgressPercent = percentOf(done, total)
	e.op.Message = "Downloading"
	w.touchLocked(e)
	return nil
}

// transition checks for a pending signal and moves to the next stage atomically
func (w *Worker) transition(e *entry, state State, message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := e.signal(); err != nil {
		return err
	}
	e.op.State = state
	e.op.Message = message
	e.op.SpeedBps = 0
	e.op.EtaSeconds = 0
	w.touchLocked(e)
	return nil
}

func (w *Worker) reportProgress(e *entry, done, total, speed, eta int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// a pause or cancel already owns the visible state
	if e.op.State != StateDownloading {
		return
	}
	pct := percentOf(done, total)
	e.op.BytesDone = done
	e.op.BytesTotal = total
	e.op.SpeedBps = speed
	e.op.EtaSeconds = eta
	e.op.ProgressPercent = pct
	e.op.Message = fmt.Sprintf("Downloading %d%%", int(math.Round(pct)))
	w.touchLocked(e)
}

func (w *Worker) hashDir(releaseName string) string {
	return filepath.Join(w.opts.DownloadsRoot, catalog.ContentHash(releaseName))
}

// releaseDir is where an archive extracts to, empty if the name is not a plain directory name
func (w *Worker) releaseDir(releaseName string) string {
	if releaseName == "" || releaseName == "." || releaseName == ".." || strings.ContainsAny(releaseName, `/\`) {
		return ""
	}
	return filepath.Join(w.opts.DownloadsRoot, releaseName)
}

// cleanup removes the chunk directory and the extracted release
func (w *Worker) cleanup(releaseName string) {
	dirs := []string{w.hashDir(releaseName)}
	if dir := w.releaseDir(releaseName); dir != "" {
		dirs = append(dirs, dir)
	}
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			w.logger.Warn("Failed to remove download directory", "dir", dir, "error", err)
		}
	}
}

func (w *Worker) process(ctx context.Context, e *entry) error {
	// id and game never change after enqueue
	id := e.op.ID
	game := e.game

	cfg, err := w.remote.FetchPublicConfig(ctx)
	if err != nil {
		return err
	}

	hash := catalog.ContentHash(game.ReleaseName)
	hashDir := filepath.Join(w.opts.DownloadsRoot, hash)
	if err := os.MkdirAll(hashDir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	indexURL := catalog.IndexURL(cfg.BaseURI, hash)
	w.log.Append(id, stageDownload, oplog.LevelInfo, "Fetching remote chunk list", indexURL)
	index, err := w.remote.FetchText(ctx, indexURL)
	if err != nil {
		return err
	}
	chunks := catalog.GameChunks(cfg.BaseURI, hash, index)
	if len(chunks) == 0 {
		return fmt.Errorf("no archive chunks found for %s", game.ReleaseName)
	}

	infos, err := w.remote.ProbeChunks(ctx, chunks, w.opts.ProbeParallelism)
	if err != nil {
		return err
	}
	total := remote.TotalKnownBytes(infos)
	var done int64
	for _, info := range infos {
		if size := fileutil.FileSize(filepath.Join(hashDir, info.Name)); size > 0 {
			done += size
		}
	}

	if err := w.begin(e, total, done); err != nil {
		return err
	}

	tracker := &progress{
		w:        w,
		e:        e,
		total:    total,
		done:     done,
		interval: w.opts.ProgressInterval,
		start:    w.now(),
	}
	for _, info := range infos {
		if err := e.signal(); err != nil {
			return err
		}

		dest := filepath.Join(hashDir, info.Name)
		size := fileutil.FileSize(dest)
		if size > 0 && size == info.ContentLength {
			continue
		}
		if size > 0 && (!info.AcceptRanges || (info.ContentLength > 0 && size > info.ContentLength)) {
			if err := os.Remove(dest); err != nil {
				return fmt.Errorf("failed to remove partial chunk: %w", err)
			}
			tracker.done -= size
			if !info.AcceptRanges {
				w.log.Append(id, stageDownload, oplog.LevelWarn, "Range unsupported, restarting chunk", info.Name)
			}
		}

		if err := w.remote.Download(ctx, info.URL, dest, info.AcceptRanges, tracker.onChunk); err != nil {
			return err
		}
	}

	if err := w.transition(e, StateExtracting, "Extracting"); err != nil {
		return err
	}
	w.log.Append(id, stageExtract, oplog.LevelInfo, "Extracting game archive", hash)

	names := make([]string, 0, len(chunks))
	for _, c := range chunks {
		names = append(names, c.Name)
	}
	archive := filepath.Join(hashDir, catalog.ArchiveEntry(names))
	if err := w.extractor.Extract7z(ctx, archive, w.opts.DownloadsRoot, cfg.Password); err != nil {
		return err
	}

	gameDir := hashDir
	if dir := w.releaseDir(game.ReleaseName); dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			gameDir = dir
		}
	}

	if err := w.transition(e, StateInstalling, "Installing"); err != nil {
		return err
	}
	w.log.Append(id, stageInstall, oplog.LevelInfo, "Installing package", game.PackageName)

	report, err := w.installer.Install(ctx, id, gameDir, game.PackageName)
	if err != nil {
		return err
	}
	if len(report.Warnings) > 0 {
		w.log.Append(id, stageInstall, oplog.LevelWarn, "Install warnings", strings.Join(report.Warnings, "; "))
	}

	w.cleanup(game.ReleaseName)
	return nil
}

// progress accumulates bytes on the download goroutine and publishes
// a snapshot at most once per interval
type progress struct {
	w        *Worker
	e        *entry
	total    int64
	done     int64
	window   int64
	interval time.Duration
	start    time.Time
}

func (p *progress) onChunk(n int64) error {
	if err := p.e.signal(); err != nil {
		return err
	}
	if n < 0 {
		// bytes discarded by a restarted transfer
		p.done += n
		return nil
	}
	p.done += n
	p.window += n

	now := p.w.now()
	elapsed := now.Sub(p.start)
	if elapsed < p.interval {
		return nil
	}

	ms := elapsed.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	speed := p.window * 1000 / ms
	var eta int64
	if speed > 0 {
		remaining := p.total - p.done
		if remaining < 0 {
			remaining = 0
		}
		eta = remaining / speed
	}

	p.w.reportProgress(p.e, p.done, p.total, speed, eta)
	p.window = 0
	p.start = now
	return nil
}
