package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Copy retry policy for files held open by another process (EBUSY).
const (
	copyRetries   = 5
	copyBaseDelay = 100 * time.Millisecond
)

// FS implements Provider backed by the local file system.
type FS struct {
	root   string // absolute path to the output directory
	logger *slog.Logger
}

// NewFS creates a new FS rooted at the given directory, creating it when
// missing.
func NewFS(root string, logger *slog.Logger) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{root: abs, logger: logger}, nil
}

// Root returns the absolute output directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the root and rejects any result
// that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes site root: %s", rel)
	}
	return abs, nil
}

// Reset deletes the output tree and recreates an empty root.
func (f *FS) Reset() error {
	if err := os.RemoveAll(f.root); err != nil {
		return fmt.Errorf("storage: clean root: %w", err)
	}
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return fmt.Errorf("storage: create root: %w", err)
	}
	return nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".grimoire-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Copy copies src into the site at dst. A busy source or destination is
// retried with exponential backoff; other errors fail immediately.
func (f *FS) Copy(src, dst string) error {
	abs, err := f.safePath(dst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = copyBaseDelay
	policy.Multiplier = 2

	attempt := 0
	op := func() error {
		attempt++
		err := copyFile(src, abs)
		if err != nil && !errors.Is(err, syscall.EBUSY) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		if attempt == 1 {
			f.logger.Info("storage: file busy, retrying copy",
				slog.String("file", filepath.Base(src)),
				slog.Duration("wait", wait))
		}
	}
	if err := backoff.RetryNotify(op, backoff.WithMaxRetries(policy, copyRetries), notify); err != nil {
		if errors.Is(err, syscall.EBUSY) {
			f.logger.Error("storage: copy failed after retries",
				slog.String("file", filepath.Base(src)),
				slog.Int("attempts", attempt),
				slog.String("error", err.Error()))
		}
		return fmt.Errorf("storage: copy %s: %w", filepath.Base(src), err)
	}
	return nil
}

// CopyDir copies the regular files directly inside srcDir into dstDir and
// returns how many were copied. A missing srcDir copies nothing.
func (f *FS) CopyDir(srcDir, dstDir string) (int, error) {
	entries, err := os.ReadDir(srcDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("storage: read dir %s: %w", srcDir, err)
	}
	n := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := f.Copy(filepath.Join(srcDir, e.Name()), filepath.ToSlash(filepath.Join(dstDir, e.Name()))); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
