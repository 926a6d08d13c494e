// Package fs provides file system adapters for walking and hashing files.
package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"

	"github.com/kilnbuild/kiln/internal/core/domain"
	"github.com/kilnbuild/kiln/internal/core/ports"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher computes cache keys from lockfile contents.
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return hasher.Sum64(), nil
}

// ComputeKey derives the cache key for the given spec: a checksum over the
// key files' paths and contents, prefixed with the spec's static prefix so
// unrelated caches never collide. Key files are hashed in their canonical
// sorted order, so the key is deterministic.
func (h *Hasher) ComputeKey(spec *domain.CacheSpec, root string) (string, error) {
	hasher := xxhash.New()

	_, _ = hasher.WriteString(spec.KeyPrefix)
	_, _ = hasher.Write([]byte{0})

	for _, file := range spec.KeyFiles {
		path := filepath.Join(root, file.String())
		if err := h.hashKeyPath(path, hasher); err != nil {
			return "", err
		}
	}

	sum := fmt.Sprintf("%016x", hasher.Sum64())
	if spec.KeyPrefix == "" {
		return sum, nil
	}
	return spec.KeyPrefix + "-" + sum, nil
}

// hashKeyPath hashes a single key path, attempting glob resolution if the
// path doesn't exist verbatim.
func (h *Hasher) hashKeyPath(path string, hasher io.Writer) error {
	if _, err := os.Stat(path); err != nil {
		return h.tryGlobAndHash(path, hasher)
	}
	return h.hashPath(path, hasher)
}

// tryGlobAndHash resolves a path as a glob pattern and hashes all matches.
func (h *Hasher) tryGlobAndHash(path string, hasher io.Writer) error {
	matches, globErr := filepath.Glob(path)
	if globErr == nil && len(matches) > 0 {
		for _, match := range matches {
			if err := h.hashPath(match, hasher); err != nil {
				return err
			}
		}
		return nil
	}
	// Not a glob, or a glob with no matches: the key file is missing.
	return zerr.With(zerr.New("cache key file not found"), "path", path)
}

func (h *Hasher) hashPath(path string, hasher io.Writer) error {
	info, err := os.Stat(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to stat path"), "path", path)
	}

	if info.IsDir() {
		for filePath, walkErr := range h.walker.WalkFiles(path, nil) {
			if walkErr != nil {
				return zerr.With(zerr.Wrap(walkErr, "failed to walk directory"), "path", path)
			}
			if err := h.hashFile(filePath, hasher); err != nil {
				return err
			}
		}
		return nil
	}
	return h.hashFile(path, hasher)
}

func (h *Hasher) hashFile(path string, hasher io.Writer) error {
	_, _ = hasher.Write([]byte(path))
	_, _ = hasher.Write([]byte{0})

	hash, err := h.ComputeFileHash(path)
	if err != nil {
		return err
	}

	if err := binary.Write(hasher, binary.LittleEndian, hash); err != nil {
		return zerr.Wrap(err, "failed to write hash to digest")
	}
	return nil
}
