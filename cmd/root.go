package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mol-cyberwhip/veteranVR/internal/app"
	"github.com/mol-cyberwhip/veteranVR/internal/config"
	"github.com/mol-cyberwhip/veteranVR/internal/logging"
)

var (
	Version  = "dev"
	cfgFile  string
	dataDir  string
	logLevel string
	backend  string
)

var rootCmd = &cobra.Command{
	Use:     "veteranvr",
	Short:   "Sideloading client for VR headsets",
	Version: Version,
	Long: `veteranvr syncs the public game catalog, downloads releases in
resumable chunks, extracts them and installs them on a headset over adb.

Configuration is read from --config, then VETERANVR_* environment
variables, then built-in defaults.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (default: ~/.veteranvr)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Installer backend: adb or local")
}

// loadConfig merges the persistent flags over the file and environment
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.New(cfgFile)
	if err != nil {
		return nil, err
	}
	bindFlag(v, cmd, "data_dir", "data-dir")
	bindFlag(v, cmd, "log.level", "log-level")
	bindFlag(v, cmd, "installer.backend", "backend")

	cfg, err := config.Decode(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		v.Set(key, f.Value.String())
	}
}

// session is the wired application plus the resources backing it
type session struct {
	cfg    *config.Config
	app    *app.App
	logger *slog.Logger
	closer io.Closer
}

func (s *session) Close() error {
	return s.closer.Close()
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, closer := logging.Setup(cfg.Log)
	a, err := app.New(cfg, logger)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return &session{cfg: cfg, app: a, logger: logger, closer: closer}, nil
}
