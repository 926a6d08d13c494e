// Package cache implements the keyed directory cache and its manifest.
package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"github.com/kilnbuild/kiln/internal/core/domain"
	"github.com/kilnbuild/kiln/internal/core/ports"
)

// DefaultRoot is the cache location relative to the working directory.
const DefaultRoot = ".kiln/cache"

var _ ports.CacheStore = (*Store)(nil)

// Store implements ports.CacheStore on the local filesystem.
//
// Layout:
//
//	{root}/
//	  manifest.json
//	  {key[0:2]}/
//	    {key}/
//	      0/   (first cached path)
//	      1/   (second cached path)
//	      ...
//
// Stored directories are positional: entry N corresponds to the Nth path in
// the job's canonical (sorted) path list. The manifest records that list, and
// Restore serves an entry only when the requested paths match it exactly.
type Store struct {
	root string

	mu       sync.RWMutex
	manifest map[string]domain.CacheRecord
}

// NewStore creates a Store rooted at the given directory and loads the
// manifest if one exists.
func NewStore(root string) (*Store, error) {
	s := &Store{
		root:     filepath.Clean(root),
		manifest: make(map[string]domain.CacheRecord),
	}
	if err := s.loadManifest(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.root, "manifest.json")
}

func (s *Store) entryDir(key string) string {
	fanout := key
	if len(fanout) > 2 {
		fanout = fanout[:2]
	}
	return filepath.Join(s.root, fanout, key)
}

func (s *Store) loadManifest() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.manifestPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, "failed to read cache manifest")
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.manifest); err != nil {
		return zerr.Wrap(err, "failed to unmarshal cache manifest")
	}

	return nil
}

func (s *Store) saveManifest() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal cache manifest")
	}

	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return zerr.Wrap(err, "failed to create cache directory")
	}

	if err := os.WriteFile(s.manifestPath(), data, 0o644); err != nil { //nolint:gosec // manifest is not sensitive
		return zerr.Wrap(err, "failed to write cache manifest")
	}

	return nil
}

// Restore copies the cached directories for key back under root. Existing
// target directories are replaced, matching a fresh CI workspace. It returns
// false without error when no entry exists for key, and likewise when the
// requested paths differ from the ones the entry was saved with: positional
// data must never land in a directory it was not saved from. No target is
// touched until every source has been verified.
func (s *Store) Restore(key string, paths []string, root string) (bool, error) {
	s.mu.RLock()
	record, known := s.manifest[key]
	s.mu.RUnlock()
	if !known {
		return false, nil
	}
	if !slices.Equal(record.Paths, paths) {
		return false, nil
	}

	entry := s.entryDir(key)
	if _, err := os.Stat(entry); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Manifest entry without data; treat as a miss.
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, "failed to stat cache entry"), "key", key)
	}

	srcs := make([]string, len(paths))
	for i := range paths {
		src := filepath.Join(entry, strconv.Itoa(i))
		if _, err := os.Stat(src); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, zerr.With(zerr.Wrap(err, "failed to stat cached path"), "path", src)
		}
		srcs[i] = src
	}

	for i, p := range paths {
		dst := filepath.Join(root, p)
		if err := os.RemoveAll(dst); err != nil {
			return false, zerr.With(zerr.Wrap(err, "failed to clear restore target"), "path", dst)
		}
		if err := os.MkdirAll(dst, 0o750); err != nil {
			return false, zerr.With(zerr.Wrap(err, "failed to create restore target"), "path", dst)
		}
		if err := os.CopyFS(dst, os.DirFS(srcs[i])); err != nil {
			return false, zerr.With(zerr.Wrap(err, "failed to restore cached path"), "path", dst)
		}
	}

	return true, nil
}

// Save stores the given directories under key and records a manifest entry.
// Saving an existing key overwrites its data. Paths are copied concurrently.
func (s *Store) Save(key, jobName string, paths []string, root string) error {
	entry := s.entryDir(key)
	if err := os.RemoveAll(entry); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to clear cache entry"), "key", key)
	}

	var g errgroup.Group
	for i, p := range paths {
		g.Go(func() error {
			src := filepath.Join(root, p)
			dst := filepath.Join(entry, strconv.Itoa(i))
			if err := os.MkdirAll(dst, 0o750); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to create cache entry"), "path", dst)
			}
			if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to save path to cache"), "path", src)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	size, err := dirSize(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.manifest[key] = domain.CacheRecord{
		Key:       key,
		JobName:   jobName,
		Paths:     paths,
		SizeBytes: size,
		Timestamp: time.Now(),
	}
	s.mu.Unlock()

	return s.saveManifest()
}

// Prune removes all cache entries and the manifest.
func (s *Store) Prune() error {
	s.mu.Lock()
	s.manifest = make(map[string]domain.CacheRecord)
	s.mu.Unlock()

	if err := os.RemoveAll(s.root); err != nil {
		return zerr.Wrap(err, "failed to remove cache directory")
	}
	return nil
}

func dirSize(root string) (int64, error) {
	var size int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	if err != nil {
		return 0, zerr.Wrap(err, "failed to measure cache entry")
	}
	return size, nil
}
