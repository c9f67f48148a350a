package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// DefaultBinary is the extractor looked up on PATH when no bundled copy is configured
const DefaultBinary = "7zz"

// Extractor unpacks archives into a directory
type Extractor interface {
	Extract7z(ctx context.Context, archive, outputDir, password string) error
}

// Service runs a native 7-Zip binary. The bundled binary is copied into
// binDir on first use and marked executable.
type Service struct {
	bundled string
	binDir  string
	logger  *slog.Logger

	once sync.Once
	path string
	err  error
}

// NewService creates an extraction service. bundled may be an absolute path
// or a name resolved on PATH.
func NewService(bundled, binDir string, logger *slog.Logger) *Service {
	if bundled == "" {
		bundled = DefaultBinary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{bundled: bundled, binDir: binDir, logger: logger}
}

// EnsureReady materialises the extractor binary. Only the first call does any work.
func (s *Service) EnsureReady() (string, error) {
	s.once.Do(func() {
		s.path, s.err = s.install()
	})
	return s.path, s.err
}

func (s *Service) install() (string, error) {
	src := s.bundled
	if !filepath.IsAbs(src) {
		found, err := exec.LookPath(src)
		if err != nil {
			return "", fmt.Errorf("failed to locate extractor %q: %w", src, err)
		}
		src = found
	}

	if s.binDir == "" {
		return src, nil
	}

	if err := os.MkdirAll(s.binDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create bin directory: %w", err)
	}

	dst := filepath.Join(s.binDir, filepath.Base(src))
	if _, err := os.Stat(dst); os.IsNotExist(err) {
		if err := copyBinary(src, dst); err != nil {
			return "", err
		}
		s.logger.Info("extractor installed", "path", dst)
	}

	if err := os.Chmod(dst, 0755); err != nil {
		return "", fmt.Errorf("failed to set executable bit on %s: %w", dst, err)
	}
	return dst, nil
}

func copyBinary(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open extractor: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("failed to create extractor copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy extractor: %w", err)
	}
	return out.Close()
}

// BuildArgs returns the extractor arguments. An empty password still passes
// a bare -p so the binary never prompts.
func BuildArgs(archive, outputDir, password string) []string {
	return []string{
		"x",
		"-o" + outputDir,
		archive,
		"-y",
		"-p" + password,
	}
}

// Extract7z unpacks archive into outputDir. Failures are returned as *Error.
func (s *Service) Extract7z(ctx context.Context, archive, outputDir, password string) error {
	bin, err := s.EnsureReady()
	if err != nil {
		return err
	}

	if _, err := os.Stat(archive); err != nil {
		return fmt.Errorf("archive not found: %s", archive)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, BuildArgs(archive, outputDir, password)...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	s.logger.Debug("running extractor", "archive", archive, "output", outputDir)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fmt.Errorf("failed to run extractor: %w", err)
		}
		return Classify(output.String())
	}
	return nil
}
