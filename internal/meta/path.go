// Package meta implements the recursive filesystem/archive walker:
// Path, File, Archive and ArchiveFile from spec.md §3/§4.1. It is the
// generalization of the teacher's internals/walk.go traversal (which
// hashed every node) into a lazy item producer that MIME-sniffs and
// optionally deflates archives instead.
package meta

import (
	"os"
	"path/filepath"
)

// Path is an opaque, symlink-normalised absolute filesystem path. Per
// spec.md §9 ("Dynamic attribute proxying on Path"), it exposes only
// the operations the rest of the core actually uses rather than
// proxying the string/os API wholesale.
type Path struct {
	abs    string
	isLink bool
}

// NewPath resolves raw to an absolute path and, if its leaf component
// is a symlink, resolves that link exactly once against the link's
// directory (relative targets) or as an absolute path (absolute
// targets) — matching spec.md §3's construction invariant. No further
// symlink is followed after this point.
func NewPath(raw string) (Path, error) {
	abs, err := filepath.Abs(raw)
	if err != nil {
		return Path{}, err
	}

	isLink := false
	if fi, err := os.Lstat(abs); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		isLink = true
		target, err := os.Readlink(abs)
		if err != nil {
			return Path{}, err
		}
		if filepath.IsAbs(target) {
			abs, err = filepath.Abs(target)
		} else {
			abs, err = filepath.Abs(filepath.Join(filepath.Dir(abs), target))
		}
		if err != nil {
			return Path{}, err
		}
	}

	return Path{abs: abs, isLink: isLink}, nil
}

// String returns the resolved absolute path.
func (p Path) String() string { return p.abs }

// Base returns the final path element (os.path.basename).
func (p Path) Base() string { return filepath.Base(p.abs) }

// Dir returns the path's parent directory (os.path.dirname).
func (p Path) Dir() string { return filepath.Dir(p.abs) }

// Join returns a new Path for elem joined under this one. Used to
// build synthetic archive-member paths (spec.md §3: "the synthetic
// join of archive path and member name").
func (p Path) Join(elem string) Path {
	return Path{abs: filepath.Join(p.abs, elem)}
}

// IsLink reports whether the original (pre-resolution) entry was a
// symlink.
func (p Path) IsLink() bool { return p.isLink }
