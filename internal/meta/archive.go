package meta

import (
	"archive/zip"
	"io"
	"os"
	"strings"
)

// isSupportedArchiveMime reports whether mime is one File.Maybe will
// attempt to deflate.
func isSupportedArchiveMime(mime string) bool {
	for _, m := range SupportedMimetypes() {
		if m == mime {
			return true
		}
	}
	return false
}

// Maybe implements spec.md §4.1's File.maybe: construct a plain file
// item, then upgrade it to an Archive if its content looks like one,
// deflate is enabled, and it isn't oversized. Decoder failures
// downgrade back to the plain file rather than propagating — the
// walker never raises to the scanner (spec.md §4.1/§7).
func Maybe(ctx *Context, path Path, depth int, warn func(format string, args ...any)) *Item {
	it := &Item{Path: path, Kind: KindFile, Readable: true, Walkable: false, depth: depth, ctx: ctx}
	if fi, err := os.Stat(path.String()); err == nil {
		it.info = fi
	} else {
		it.Readable = false
		return it
	}

	if !ctx.Deflate {
		return it
	}

	mime := it.MimeType()
	if !isSupportedArchiveMime(mime) {
		return it
	}
	if ctx.DeflateLimit > 0 && it.Size() > ctx.DeflateLimit {
		if warn != nil {
			warn("skipped archive %s: too big (%d > %d)", it.String(), it.Size(), ctx.DeflateLimit)
		}
		return it
	}

	archive, err := upgradeToArchive(it, mime, it.String())
	if err != nil {
		if warn != nil {
			warn("failed to inspect archive %s: %s", it.String(), err)
		}
		return it
	}
	return archive
}

// upgradeToArchive builds an Archive item carrying it's identity
// (Path/depth), with the decoder reading from path. The two differ
// when deflating an archive nested inside another archive: the
// member has no path of its own, so the walker stages it to a
// temporary file and passes that file's path here (spec.md §9 open
// question 2, "nested archives are recursively deflated").
func upgradeToArchive(it *Item, mime, path string) (*Item, error) {
	format, ok := mimeToFormat(mime)
	if !ok {
		return nil, &ErrUnsupportedFormat{MimeType: mime}
	}

	archive := &Item{
		Path:     it.Path,
		Kind:     KindArchive,
		Readable: false,
		Walkable: true,
		depth:    it.depth,
		ctx:      it.ctx,
		info:     it.info,
		format:   format,
	}
	archive.setMimeType(mime)

	switch format {
	case formatTar:
		archive.dec = &tarDecoder{open: func() (io.ReadCloser, error) { return os.Open(path) }}

	case formatZip:
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, &CorruptionError{Path: path, Err: err}
		}
		archive.dec = &zipDecoder{zr: zr}

	case formatRar:
		archive.dec = &rarDecoder{path: path}

	case formatGzip, formatBzip2, formatXz:
		opener, err := newDecompressor(format, path)
		if err != nil {
			return nil, err
		}
		peek, err := readPeek(opener, 1024)
		if err != nil {
			return nil, &CorruptionError{Path: path, Err: err}
		}

		reopen := func() (io.ReadCloser, error) {
			r, c, err := opener()
			if err != nil {
				return nil, err
			}
			return readCloserAdapter{Reader: r, closer: c}, nil
		}

		if isTarBundle(peek) {
			archive.dec = &tarDecoder{open: reopen}
		} else {
			// Single compressed file: classify by the decompressed
			// content rather than the compressed bytes, so e.g. a
			// .json.gz reports as application/json (spec.md §4.1's
			// "MIME override for single-file compressors", applied to
			// the Archive record itself per spec.md §9 open question 3).
			archive.setMimeType(sniffMimeType(peek))
			modTime := it.ModTime()
			archive.dec = &singleDecoder{open: reopen, size: -1, modTime: modTime}
		}
	}

	return archive, nil
}

type readCloserAdapter struct {
	io.Reader
	closer io.Closer
}

func (r readCloserAdapter) Close() error { return r.closer.Close() }

// Children returns the archive members of it, as ArchiveFile items, in
// member-table order (spec.md §5: "within an archive, in member-table
// order").
func Children(it *Item) ([]*Item, error) {
	if it.Kind != KindArchive {
		return nil, nil
	}
	if it.members == nil {
		members, err := it.dec.Members()
		if err != nil {
			return nil, err
		}
		it.members = members
	}

	children := make([]*Item, 0, len(it.members))
	for _, m := range it.members {
		child := &Item{
			Path:     it.Path.Join(m.name),
			Kind:     KindArchiveFile,
			Readable: m.isRegular,
			Walkable: false,
			depth:    it.depth + segmentCount(m.name),
			ctx:      it.ctx,
			archive:  it,
			member:   m,
		}
		children = append(children, child)
	}
	return children, nil
}

// deflateMember attempts to upgrade an archive member to a nested
// Archive, staging its content to a temporary file so the existing
// path-based decoders can open it (spec.md §9 open question 2: nested
// archives are recursively deflated, bounded only by depth
// accounting). Returns (nil, nil) when the member isn't deflatable.
// The caller must invoke cleanup once it is done descending into the
// returned archive's children.
func deflateMember(ctx *Context, child *Item, warn func(format string, args ...any)) (nested *Item, cleanup func()) {
	if ctx == nil || !ctx.Deflate || !child.Readable {
		return nil, nil
	}
	mime := child.MimeType()
	if !isSupportedArchiveMime(mime) {
		return nil, nil
	}
	if ctx.DeflateLimit > 0 && child.Size() > ctx.DeflateLimit {
		if warn != nil {
			warn("skipped nested archive %s: too big (%d > %d)", child.String(), child.Size(), ctx.DeflateLimit)
		}
		return nil, nil
	}

	rc, err := child.Open()
	if err != nil {
		if warn != nil {
			warn("failed to open nested archive %s: %s", child.String(), err)
		}
		return nil, nil
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "classified-nested-*")
	if err != nil {
		if warn != nil {
			warn("failed to stage nested archive %s: %s", child.String(), err)
		}
		return nil, nil
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		if warn != nil {
			warn("failed to stage nested archive %s: %s", child.String(), err)
		}
		return nil, nil
	}
	tmp.Close()
	remove := func() { os.Remove(tmp.Name()) }

	archive, err := upgradeToArchive(child, mime, tmp.Name())
	if err != nil {
		remove()
		if warn != nil {
			warn("failed to inspect nested archive %s: %s", child.String(), err)
		}
		return nil, nil
	}
	return archive, remove
}

func segmentCount(name string) int {
	if name == "" {
		return 1
	}
	return strings.Count(strings.Trim(name, "/"), "/") + 1
}
