// Package repository detects which source-control system, if any,
// owns a directory by testing for vendor-specific marker paths,
// matching spec.md §4.2.
package repository

import (
	"os"
	"path/filepath"
	"sync"
)

// Kind identifies a detected SCM, or "" for none.
type Kind string

const (
	Arch     Kind = "arch"
	Bzr      Kind = "bzr"
	CVS      Kind = "cvs"
	Darcs    Kind = "darcs"
	Git      Kind = "git"
	Hg       Kind = "hg"
	Monotone Kind = "monotone"
	RCS      Kind = "rcs"
	SVN      Kind = "svn"
)

// Info is the result of detection for a directory.
type Info struct {
	Kind Kind
	Root string
}

type markerKind int

const (
	markerPath markerKind = iota
	markerFile
)

type marker struct {
	kind    markerKind
	pattern string
}

// markers is the fixed detection table from spec.md §4.2, in table
// order — the first directory-level match wins ties.
var markers = []struct {
	kind    Kind
	markers []marker
}{
	{Arch, []marker{{markerFile, "{arch}/.arch-project-tree"}}},
	{Bzr, []marker{{markerPath, ".bzr/repository"}}},
	{CVS, []marker{{markerPath, "CVS"}, {markerPath, "CVSROOT"}}},
	{Darcs, []marker{{markerPath, "_darcs/pristine.hashed"}}},
	{Git, []marker{{markerPath, ".git/objects"}, {markerPath, "refs/heads"}}},
	{Hg, []marker{{markerPath, ".hg/store"}}},
	{Monotone, []marker{{markerFile, "_MTN/format"}}},
	{RCS, []marker{{markerPath, "RCS"}}},
	{SVN, []marker{{markerFile, ".svn/format"}, {markerPath, "db/revs"}}},
}

func exists(path string, wantDir bool) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if wantDir {
		return info.IsDir()
	}
	return !info.IsDir()
}

func matches(dir string, m marker) bool {
	full := filepath.Join(dir, m.pattern)
	switch m.kind {
	case markerFile:
		return exists(full, false)
	default: // markerPath: either a file or directory presence is enough
		if _, err := os.Stat(full); err == nil {
			return true
		}
		return false
	}
}

// Detector memoises per-directory detection results so repeated
// lookups (one per scanned item, per ignore_repo check) stay close to
// O(depth) amortised, matching spec.md §4.2's cost note.
type Detector struct {
	mu    sync.Mutex
	cache map[string]Info
}

// NewDetector returns a ready-to-use, empty Detector.
func NewDetector() *Detector {
	return &Detector{cache: map[string]Info{}}
}

// Detect walks upward from dir, testing the marker table at each
// level, and returns the first match. Stops at the filesystem root.
// The result is a pure function of dir: repeated calls return an
// identical Info (spec.md §8 invariant).
func (d *Detector) Detect(dir string) Info {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detectLocked(dir)
}

func (d *Detector) detectLocked(dir string) Info {
	if cached, ok := d.cache[dir]; ok {
		return cached
	}

	info := d.probeLocked(dir)
	d.cache[dir] = info
	return info
}

func (d *Detector) probeLocked(dir string) Info {
	for _, candidate := range markers {
		for _, m := range candidate.markers {
			if matches(dir, m) {
				return Info{Kind: candidate.kind, Root: dir}
			}
		}
	}

	parent := filepath.Dir(dir)
	if parent == dir {
		// Reached the filesystem root without a match.
		return Info{}
	}

	info := d.detectLocked(parent)
	d.cache[dir] = info
	return info
}
