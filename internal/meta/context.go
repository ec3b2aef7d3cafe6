package meta

import (
	"github.com/tehmaze/classified/internal/platformfs"
	"github.com/tehmaze/classified/internal/repository"
)

// Context carries the shared, read-mostly services the walker
// consults while producing items: filesystem enumeration and
// repository detection. Passed explicitly through construction in
// place of the module-level globals spec.md §9 calls out
// ("Global mutable state... Replace with an explicit ScannerContext").
type Context struct {
	FS   *platformfs.Context
	Repo *repository.Detector

	// Deflate enables archive descent (spec.md §4.1).
	Deflate bool
	// DeflateLimit caps the size of an archive that will be opened for
	// descent; 0 means unlimited.
	DeflateLimit int64
	// MaxDepth bounds total walk depth, including archive member
	// depth (spec.md §3 invariant (b)); -1 means unbounded.
	MaxDepth int
}

// NewContext builds a Context with the real platform adapters wired
// in.
func NewContext() *Context {
	return &Context{
		FS:       platformfs.NewContext(),
		Repo:     repository.NewDetector(),
		Deflate:  true,
		MaxDepth: -1,
	}
}
