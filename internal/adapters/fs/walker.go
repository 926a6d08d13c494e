package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields all files under root, skipping .git, .kiln, and any
// directories matching the ignore patterns. Yielded paths start with root,
// as produced by filepath.WalkDir. A failed directory read ends the
// sequence with a non-nil error; ignoring it would silently truncate the
// file set.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if skipAction := w.shouldSkipDir(d, ignores); skipAction != nil {
				return skipAction
			}

			if d.IsDir() {
				return nil
			}

			if !yield(path, nil) {
				return filepath.SkipAll
			}

			return nil
		})
		if err != nil {
			yield("", err)
		}
	}
}

// shouldSkipDir checks if an entry should be skipped based on ignore
// patterns. It returns filepath.SkipDir for skipped directories and nil
// otherwise.
func (w *Walker) shouldSkipDir(d fs.DirEntry, ignores []string) error {
	name := d.Name()

	// Never hash version control metadata or kiln's own state.
	if d.IsDir() && (name == ".git" || name == ".kiln") {
		return filepath.SkipDir
	}

	for _, ignore := range ignores {
		matched, _ := filepath.Match(ignore, name)
		if matched && d.IsDir() {
			return filepath.SkipDir
		}
	}

	return nil
}
