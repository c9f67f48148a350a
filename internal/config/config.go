package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mol-cyberwhip/veteranVR/internal/logging"
	"github.com/mol-cyberwhip/veteranVR/internal/oplog"
	"github.com/mol-cyberwhip/veteranVR/internal/remote"
	"github.com/mol-cyberwhip/veteranVR/internal/store"
)

const (
	EnvPrefix = "VETERANVR"

	BackendADB   = "adb"
	BackendLocal = "local"

	defaultDataDir = ".veteranvr"
)

// Config is the decoded application configuration
type Config struct {
	DataDir   string
	Remote    RemoteConfig
	Catalog   CatalogConfig
	OpLog     OpLogConfig
	Extractor ExtractorConfig
	Installer InstallerConfig
	Gate      GateConfig
	Log       logging.Options
	Serve     ServeConfig
}

type RemoteConfig struct {
	ConfigURLs       []string
	UserAgent        string
	Timeout          time.Duration
	ProbeParallelism int
}

type CatalogConfig struct {
	MaxAge time.Duration
}

type OpLogConfig struct {
	MaxEntries int
}

type ExtractorConfig struct {
	Path string
}

type InstallerConfig struct {
	Backend     string
	ADBPath     string
	Serial      string
	StorageRoot string
	Timeout     time.Duration
}

type GateConfig struct {
	MinFreeBytes int64
}

type ServeConfig struct {
	APIKey string
}

// New returns a viper instance with defaults, environment binding and,
// when cfgFile is set, the file contents loaded
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}
	return v, nil
}

// SetDefaults registers every known key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "")
	v.SetDefault("remote.config_urls", remote.DefaultConfigURLs)
	v.SetDefault("remote.user_agent", remote.DefaultUserAgent)
	v.SetDefault("remote.timeout", remote.DefaultTimeout)
	v.SetDefault("remote.probe_parallelism", 4)
	v.SetDefault("catalog.max_age", 4*time.Hour)
	v.SetDefault("oplog.max_entries", oplog.DefaultMaxEntries)
	v.SetDefault("extractor.path", "7zz")
	v.SetDefault("installer.backend", BackendADB)
	v.SetDefault("installer.adb_path", "adb")
	v.SetDefault("installer.serial", "")
	v.SetDefault("installer.storage_root", "")
	v.SetDefault("installer.timeout", 10*time.Minute)
	v.SetDefault("gate.min_free_bytes", int64(5)<<30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("serve.api_key", "")
}

// Decode reads the configuration out of v and resolves derived paths
func Decode(v *viper.Viper) (*Config, error) {
	c := &Config{
		DataDir: v.GetString("data_dir"),
		Remote: RemoteConfig{
			ConfigURLs:       v.GetStringSlice("remote.config_urls"),
			UserAgent:        v.GetString("remote.user_agent"),
			Timeout:          v.GetDuration("remote.timeout"),
			ProbeParallelism: v.GetInt("remote.probe_parallelism"),
		},
		Catalog: CatalogConfig{
			MaxAge: v.GetDuration("catalog.max_age"),
		},
		OpLog: OpLogConfig{
			MaxEntries: v.GetInt("oplog.max_entries"),
		},
		Extractor: ExtractorConfig{
			Path: v.GetString("extractor.path"),
		},
		Installer: InstallerConfig{
			Backend:     strings.ToLower(v.GetString("installer.backend")),
			ADBPath:     v.GetString("installer.adb_path"),
			Serial:      v.GetString("installer.serial"),
			StorageRoot: v.GetString("installer.storage_root"),
			Timeout:     v.GetDuration("installer.timeout"),
		},
		Gate: GateConfig{
			MinFreeBytes: v.GetInt64("gate.min_free_bytes"),
		},
		Log: logging.Options{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSize:    v.GetInt("log.max_size"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAge:     v.GetInt("log.max_age"),
			Compress:   v.GetBool("log.compress"),
		},
		Serve: ServeConfig{
			APIKey: v.GetString("serve.api_key"),
		},
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, defaultDataDir)
	}
	if c.Installer.StorageRoot == "" {
		c.Installer.StorageRoot = filepath.Join(c.DataDir, "device")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load is New followed by Decode
func Load(cfgFile string) (*Config, error) {
	v, err := New(cfgFile)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// Validate rejects values the rest of the program cannot work with
func (c *Config) Validate() error {
	var errs []error
	switch c.Installer.Backend {
	case BackendADB, BackendLocal:
	default:
		errs = append(errs, fmt.Errorf("installer.backend must be %q or %q, got %q", BackendADB, BackendLocal, c.Installer.Backend))
	}
	if c.Remote.ProbeParallelism < 1 {
		errs = append(errs, fmt.Errorf("remote.probe_parallelism must be at least 1"))
	}
	if c.Installer.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("installer.timeout must be positive"))
	}
	if c.Gate.MinFreeBytes < 0 {
		errs = append(errs, fmt.Errorf("gate.min_free_bytes must not be negative"))
	}
	return errors.Join(errs...)
}

// DownloadsDir holds per-hash chunk directories and extracted releases
func (c *Config) DownloadsDir() string {
	return filepath.Join(c.DataDir, "downloads")
}

// CacheDir holds the catalog file and the meta archive
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// BinDir holds the materialised extractor
func (c *Config) BinDir() string {
	return filepath.Join(c.DataDir, "bin")
}

func (c *Config) OpLogPath() string {
	return filepath.Join(c.DataDir, oplog.FileName)
}

func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, store.DefaultFileName)
}

// EnsureDirs creates the data directory layout
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.DownloadsDir(), c.CacheDir(), c.BinDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
