package meta

import (
	"os"
	"path/filepath"
)

// Walker produces a lazy, depth-first pre-order sequence of Items
// (spec.md §4.1/§5), generalizing the teacher's internals/walk.go
// recursive hasher into an item producer. A single goroutine walks
// the tree and feeds an unbuffered channel; Next() pulls one item at
// a time, which realizes the source's generator-based Path.walk()
// idiomatically without introducing shared-memory concurrency across
// items (spec.md §5: processing stays single-threaded/cooperative).
type Walker struct {
	items chan *Item
	done  chan struct{}
}

// WalkOptions controls traversal policy that sits outside Context.
type WalkOptions struct {
	// ExcludeLink drops symlinked entries entirely before resolution,
	// a policy kept separate from archive deflation (spec.md §4.7).
	ExcludeLink bool
	// Warn receives non-fatal diagnostics. The walker never returns
	// per-item errors to its caller (spec.md §4.1/§7: "the walker
	// never raises to the scanner").
	Warn func(format string, args ...any)
}

// Walk starts a walker rooted at root.
func Walk(ctx *Context, root string, opts WalkOptions) *Walker {
	w := &Walker{
		items: make(chan *Item),
		done:  make(chan struct{}),
	}
	go w.run(ctx, root, opts)
	return w
}

// Next blocks until the next item is available. ok is false once the
// walk is exhausted.
func (w *Walker) Next() (*Item, bool) {
	it, ok := <-w.items
	return it, ok
}

// Close abandons the walk before it is exhausted, releasing the
// producer goroutine.
func (w *Walker) Close() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}

func (w *Walker) run(ctx *Context, root string, opts WalkOptions) {
	defer close(w.items)
	w.walkPath(ctx, root, 0, opts, w.send)
}

func (w *Walker) send(it *Item) bool {
	select {
	case w.items <- it:
		return true
	case <-w.done:
		return false
	}
}

func (w *Walker) warn(opts WalkOptions, format string, args ...any) {
	if opts.Warn != nil {
		opts.Warn(format, args...)
	}
}

func withinDepth(ctx *Context, depth int) bool {
	return ctx.MaxDepth < 0 || depth <= ctx.MaxDepth
}

// walkPath visits raw and, if it's a directory, recurses into its
// entries; false means the walk was abandoned via Close and callers
// should unwind without sending further items.
func (w *Walker) walkPath(ctx *Context, raw string, depth int, opts WalkOptions, send func(*Item) bool) bool {
	if !withinDepth(ctx, depth) {
		return true
	}

	p, err := NewPath(raw)
	if err != nil {
		w.warn(opts, "skipped %s: %s", raw, err)
		return true
	}
	if opts.ExcludeLink && p.IsLink() {
		return true
	}

	fi, err := os.Lstat(p.String())
	if err != nil {
		w.warn(opts, "skipped %s: %s", p.String(), err)
		return true
	}

	if fi.IsDir() {
		dir := &Item{Path: p, Kind: KindDir, Readable: false, Walkable: true, depth: depth, ctx: ctx, info: fi}
		if !send(dir) {
			return false
		}
		entries, err := os.ReadDir(p.String())
		if err != nil {
			w.warn(opts, "failed to list %s: %s", p.String(), err)
			return true
		}
		for _, e := range entries {
			if !w.walkPath(ctx, filepath.Join(p.String(), e.Name()), depth+1, opts, send) {
				return false
			}
		}
		return true
	}

	item := Maybe(ctx, p, depth, opts.Warn)
	if !send(item) {
		return false
	}
	if item.Kind == KindArchive {
		return w.walkArchive(ctx, item, opts, send)
	}
	return true
}

// walkArchive yields an archive's members in member-table order
// (spec.md §5) and recursively deflates any member that is itself an
// archive, bounded by MaxDepth (spec.md §9 open question 2).
func (w *Walker) walkArchive(ctx *Context, archive *Item, opts WalkOptions, send func(*Item) bool) bool {
	children, err := Children(archive)
	if err != nil {
		w.warn(opts, "failed to read archive %s: %s", archive.String(), err)
		return true
	}

	for _, child := range children {
		if !withinDepth(ctx, child.depth) {
			continue
		}
		if !send(child) {
			return false
		}
		if !child.Readable {
			continue
		}

		nested, cleanup := deflateMember(ctx, child, opts.Warn)
		if nested == nil {
			continue
		}
		ok := w.walkArchive(ctx, nested, opts, send)
		cleanup()
		if !ok {
			return false
		}
	}
	return true
}
