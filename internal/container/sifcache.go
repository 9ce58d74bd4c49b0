// SPDX-License-Identifier: MPL-2.0

package container

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// sifCacheDirName is the per-user cache directory for converted SIF images,
// relative to the home directory.
const sifCacheDirName = ".venvoy/sif"

type (
	// SIFCache decides where converted SIF images live on disk. Apptainer
	// pulls are materialized as files, so unlike Docker/Podman there is no
	// daemon-side image store to lean on.
	SIFCache struct {
		homeDir func() (string, error)
		tempDir func() string
		mkdir   func(string, os.FileMode) error
		inside  bool
		logger  *log.Logger
	}

	// SIFCacheOption configures a SIFCache.
	SIFCacheOption func(*SIFCache)

	// CacheDirError reports that no writable cache directory could be
	// established anywhere.
	CacheDirError struct {
		Candidates []string
		Err        error
	}
)

func (e *CacheDirError) Error() string {
	return fmt.Sprintf("sif cache: no writable directory among %v: %v", e.Candidates, e.Err)
}

func (e *CacheDirError) Unwrap() error { return e.Err }

// WithHomeDirFunc overrides home-directory resolution.
func WithHomeDirFunc(fn func() (string, error)) SIFCacheOption {
	return func(c *SIFCache) { c.homeDir = fn }
}

// WithTempDirFunc overrides temp-directory resolution.
func WithTempDirFunc(fn func() string) SIFCacheOption {
	return func(c *SIFCache) { c.tempDir = fn }
}

// WithMkdirFunc overrides directory creation.
func WithMkdirFunc(fn func(string, os.FileMode) error) SIFCacheOption {
	return func(c *SIFCache) { c.mkdir = fn }
}

// WithCacheLogger overrides the cache's logger.
func WithCacheLogger(logger *log.Logger) SIFCacheOption {
	return func(c *SIFCache) { c.logger = logger }
}

// NewSIFCache creates a SIFCache. insideContainer comes from the execution
// context snapshot: a containerized venvoy has an ephemeral home, so the
// cache goes straight to temp storage.
func NewSIFCache(insideContainer bool, opts ...SIFCacheOption) *SIFCache {
	c := &SIFCache{
		homeDir: os.UserHomeDir,
		tempDir: os.TempDir,
		mkdir:   os.MkdirAll,
		inside:  insideContainer,
		logger:  log.NewWithOptions(os.Stderr, log.Options{Prefix: "sif"}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the directory SIF images are cached under, creating it if
// needed. Outside a container the per-user cache is preferred; if it cannot
// be created the cache falls back to temp storage, loudly, before giving up.
func (c *SIFCache) Dir() (string, error) {
	var candidates []string

	if !c.inside {
		if home, err := c.homeDir(); err == nil {
			dir := filepath.Join(home, sifCacheDirName)
			candidates = append(candidates, dir)
			if mkErr := c.mkdir(dir, 0o755); mkErr == nil {
				return dir, nil
			} else {
				c.logger.Warn("falling back to temp storage for SIF cache", "dir", dir, "error", mkErr)
			}
		} else {
			c.logger.Warn("cannot resolve home directory, using temp storage for SIF cache", "error", err)
		}
	}

	dir := filepath.Join(c.tempDir(), "venvoy-sif")
	candidates = append(candidates, dir)
	if err := c.mkdir(dir, 0o755); err != nil {
		return "", &CacheDirError{Candidates: candidates, Err: err}
	}
	return dir, nil
}

// Path returns the cache path a pulled image converts to. The image
// reference is flattened into a single filename.
func (c *SIFCache) Path(image string) (string, error) {
	dir, err := c.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SIFFileName(image)), nil
}

// Exists reports whether the image already has a cached SIF file, and the
// path it lives at.
func (c *SIFCache) Exists(image string) (string, bool) {
	path, err := c.Path(image)
	if err != nil {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		return path, false
	}
	return path, true
}
