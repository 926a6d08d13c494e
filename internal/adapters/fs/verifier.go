package fs

import (
	"os"
	"path/filepath"

	"go.trai.ch/zerr"

	"github.com/kilnbuild/kiln/internal/core/ports"
)

var _ ports.Verifier = (*Verifier)(nil)

// Verifier provides functionality to verify the existence of files.
type Verifier struct{}

// NewVerifier creates a new Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyPaths checks if all paths exist in the given root directory.
// It returns true only if every path exists.
func (v *Verifier) VerifyPaths(root string, paths []string) (bool, error) {
	for _, p := range paths {
		path := filepath.Join(root, p)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, zerr.With(zerr.Wrap(err, "failed to stat path"), "path", path)
		}
	}
	return true, nil
}
