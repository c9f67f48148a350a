package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mol-cyberwhip/veteranVR/internal/catalog"
	"github.com/mol-cyberwhip/veteranVR/internal/extract"
	"github.com/mol-cyberwhip/veteranVR/internal/fileutil"
	"github.com/mol-cyberwhip/veteranVR/internal/oplog"
	"github.com/mol-cyberwhip/veteranVR/internal/store"
)

const (
	OperationID   = "catalog-sync"
	GameListFile  = "VRP-GameList.txt"
	DefaultMaxAge = 4 * time.Hour

	metaArchiveName = "meta.7z"
	stageSync       = "sync"
	stageExtract    = "extract"
)

// ErrGameListMissing is returned when the meta archive lacks the catalog file
var ErrGameListMissing = errors.New(GameListFile + " not found after extraction")

// Remote is the subset of the mirror client a sync needs
type Remote interface {
	FetchPublicConfig(ctx context.Context) (catalog.PublicConfig, error)
	Download(ctx context.Context, url, dest string, resume bool, onChunk func(n int64) error) error
}

// Snapshot is the result of a sync
type Snapshot struct {
	Dataset *catalog.Dataset
	Summary store.SyncSummary
	Config  catalog.PublicConfig
}

// Options configures a Service
type Options struct {
	CacheDir string
	MaxAge   time.Duration
	Logger   *slog.Logger
}

// Service refreshes the catalog. Concurrent calls with the same force flag
// share one run, and runs never overlap.
type Service struct {
	remote    Remote
	extractor extract.Extractor
	log       oplog.Recorder
	logger    *slog.Logger
	cacheDir  string
	maxAge    time.Duration
	now       func() time.Time
	group     singleflight.Group
	runMu     sync.Mutex
}

// New creates a sync service
func New(r Remote, extractor extract.Extractor, log oplog.Recorder, opts Options) *Service {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		remote:    r,
		extractor: extractor,
		log:       log,
		logger:    logger,
		cacheDir:  opts.CacheDir,
		maxAge:    opts.MaxAge,
		now:       time.Now,
	}
}

// CatalogPath is the cached copy of the game list
func (s *Service) CatalogPath() string {
	return filepath.Join(s.cacheDir, GameListFile)
}

func (s *Service) metaDownloadDir() string {
	return filepath.Join(s.cacheDir, "meta_download")
}

func (s *Service) metaExtractDir() string {
	return filepath.Join(s.cacheDir, "meta_extracted")
}

// ThumbnailsDir holds cover images copied out of the meta archive
func (s *Service) ThumbnailsDir() string {
	return filepath.Join(s.cacheDir, "thumbnails")
}

// NotesDir holds release notes copied out of the meta archive
func (s *Service) NotesDir() string {
	return filepath.Join(s.cacheDir, "notes")
}

// Sync returns the catalog, using the cached game list while it is younger
// than the max age unless force is set
func (s *Service) Sync(ctx context.Context, force bool) (*Snapshot, error) {
	key := "cached"
	if force {
		key = "force"
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		s.runMu.Lock()
		defer s.runMu.Unlock()

		snap, err := s.sync(ctx, force)
		if err != nil {
			s.log.Append(OperationID, stageSync, oplog.LevelError, "Catalog sync failed", err.Error())
			return nil, err
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Fresh reports whether the cached game list is younger than the max age
func (s *Service) Fresh() bool {
	info, err := os.Stat(s.CatalogPath())
	if err != nil {
		return false
	}
	age := s.now().Sub(info.ModTime())
	return age >= 0 && age < s.maxAge
}

func (s *Service) sync(ctx context.Context, force bool) (*Snapshot, error) {
	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	if !force && s.Fresh() {
		dataset, modTime, err := s.parseCached()
		if err != nil {
			return nil, err
		}
		cfg, err := s.remote.FetchPublicConfig(ctx)
		if err != nil {
			return nil, err
		}
		s.log.Append(OperationID, stageSync, oplog.LevelInfo, "Using cached catalog", s.maxAge.String())
		return &Snapshot{
			Dataset: dataset,
			Summary: store.SyncSummary{
				LastSync:   modTime,
				GamesCount: len(dataset.LatestGames),
				UsedCache:  true,
			},
			Config: cfg,
		}, nil
	}

	s.log.Append(OperationID, stageSync, oplog.LevelInfo, "Fetching public config", "")
	cfg, err := s.remote.FetchPublicConfig(ctx)
	if err != nil {
		return nil, err
	}

	metaURL := catalog.MetaArchiveURL(cfg.BaseURI)
	archive := filepath.Join(s.metaDownloadDir(), metaArchiveName)
	partial := archive + ".part"
	if err := os.MkdirAll(s.metaDownloadDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create meta download directory: %w", err)
	}

	s.log.Append(OperationID, stageSync, oplog.LevelInfo, "Downloading meta.7z", metaURL)
	if err := s.remote.Download(ctx, metaURL, partial, false, nil); err != nil {
		return nil, err
	}

	changed, err := replaceIfChanged(partial, archive)
	if err != nil {
		return nil, err
	}

	extractDir := s.metaExtractDir()
	if changed || !exists(extractDir) || !exists(s.CatalogPath()) {
		s.log.Append(OperationID, stageExtract, oplog.LevelInfo, "Extracting meta.7z", "")
		if err := os.RemoveAll(extractDir); err != nil {
			return nil, fmt.Errorf("failed to clear meta directory: %w", err)
		}
		if err := os.MkdirAll(extractDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create meta directory: %w", err)
		}
		if err := s.extractor.Extract7z(ctx, archive, extractDir, cfg.Password); err != nil {
			// force a fresh extraction next time
			os.RemoveAll(extractDir)
			return nil, fmt.Errorf("failed to extract meta.7z: %w", err)
		}
	}

	gameList, ok := fileutil.FindFile(GameListFile, extractDir, filepath.Join(extractDir, ".meta"))
	if !ok {
		return nil, ErrGameListMissing
	}
	if err := fileutil.CopyFile(gameList, s.CatalogPath()); err != nil {
		return nil, fmt.Errorf("failed to cache game list: %w", err)
	}
	s.syncMetaAssets(extractDir)

	dataset, modTime, err := s.parseCached()
	if err != nil {
		return nil, err
	}

	s.log.Append(OperationID, stageSync, oplog.LevelInfo,
		fmt.Sprintf("Catalog sync complete: %d titles", len(dataset.LatestGames)), "")

	return &Snapshot{
		Dataset: dataset,
		Summary: store.SyncSummary{
			LastSync:   modTime,
			GamesCount: len(dataset.LatestGames),
			UsedCache:  false,
		},
		Config: cfg,
	}, nil
}

func (s *Service) parseCached() (*catalog.Dataset, time.Time, error) {
	path := s.CatalogPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read cached catalog: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to stat cached catalog: %w", err)
	}
	return catalog.Parse(string(data), s.now()), info.ModTime(), nil
}

// syncMetaAssets copies thumbnails and notes next to the cached catalog
func (s *Service) syncMetaAssets(extractDir string) {
	meta := filepath.Join(extractDir, ".meta")
	for src, dst := range map[string]string{
		filepath.Join(meta, "thumbnails"): s.ThumbnailsDir(),
		filepath.Join(meta, "notes"):      s.NotesDir(),
	} {
		files, err := fileutil.ListDir(src)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir {
				continue
			}
			if err := fileutil.CopyFile(f.Path, filepath.Join(dst, filepath.Base(f.Path))); err != nil {
				s.logger.Warn("Failed to copy meta asset", "path", f.Path, "error", err)
			}
		}
	}
}

// replaceIfChanged moves partial over archive and reports whether the content differs
func replaceIfChanged(partial, archive string) (bool, error) {
	changed := true
	if exists(archive) {
		oldSum, err1 := fileutil.CalculateChecksum(archive)
		newSum, err2 := fileutil.CalculateChecksum(partial)
		if err1 == nil && err2 == nil && oldSum == newSum {
			changed = false
		}
	}
	if err := os.Rename(partial, archive); err != nil {
		return false, fmt.Errorf("failed to store meta.7z: %w", err)
	}
	return changed, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
