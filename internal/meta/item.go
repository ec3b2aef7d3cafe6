package meta

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/tehmaze/classified/internal/platformfs"
	"github.com/tehmaze/classified/internal/repository"
)

// Kind discriminates the four concrete shapes spec.md §3 defines
// (Path/File/Archive/ArchiveFile), replacing the source's class
// hierarchy with a tagged variant per spec.md §9.
type Kind int

const (
	KindDir Kind = iota
	KindFile
	KindArchive
	KindArchiveFile
)

// Item is one yielded element of a walk: a directory, a plain file, an
// opened archive, or a member inside an archive. Kept as a single
// concrete type (not four embedded structs) so Archive/ArchiveFile's
// back-references (spec.md §9, "Parent back-references") are plain
// fields rather than an ownership graph.
type Item struct {
	Path
	Kind     Kind
	Readable bool
	Walkable bool
	depth    int

	ctx *Context

	mimeOnce  sync.Once
	mimeValue string

	// set for KindFile/KindArchive
	info os.FileInfo

	// set for KindArchive
	format  archiveFormat
	dec     decoder
	members []memberMeta // memoised Members() result

	// set for KindArchiveFile
	archive *Item
	member  memberMeta

	mountOnce sync.Once
	mountRec  platformfs.Record
	repoOnce  sync.Once
	repoInfo  repository.Info
}

// Depth is this item's distance (in path segments) from the walk
// root, counting archive-member segments per spec.md §3 invariant (b).
func (it *Item) Depth() int { return it.depth }

// Size returns the item's content size in bytes.
func (it *Item) Size() int64 {
	switch it.Kind {
	case KindFile, KindArchive:
		if it.info != nil {
			return it.info.Size()
		}
		return 0
	case KindArchiveFile:
		return it.member.size
	default:
		return 0
	}
}

// MimeType returns the sniffed (or, for a deflated single-file
// compressor, overridden per spec.md §9 open-question 3) MIME type.
// Computed once and cached, matching spec.md §3's "cached
// mimetype: Option<String>".
func (it *Item) MimeType() string {
	it.mimeOnce.Do(func() {
		it.mimeValue = it.sniff()
	})
	return it.mimeValue
}

// setMimeType forces the cached MIME value, used for the tar-less
// compressor override (spec.md §4.1/§9).
func (it *Item) setMimeType(mime string) {
	it.mimeOnce.Do(func() {})
	it.mimeValue = mime
}

func (it *Item) sniff() string {
	rc, err := it.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	buf := make([]byte, sniffSize)
	n, _ := io.ReadFull(rc, buf)
	return sniffMimeType(buf[:n])
}

// Open returns a fresh read handle to this item's content. Archive and
// directory items are not directly readable (spec.md §3: Archive has
// readable=false); callers must check Readable first.
func (it *Item) Open() (io.ReadCloser, error) {
	switch it.Kind {
	case KindFile:
		return os.Open(it.String())
	case KindArchiveFile:
		return it.archive.dec.Open(it.member.name)
	default:
		return nil, os.ErrInvalid
	}
}

// Stat synthesises an os.Stat-equivalent record: the real stat for a
// plain file, or member metadata for an archive file (spec.md §3).
func (it *Item) Stat() (Stat, error) {
	switch it.Kind {
	case KindFile, KindArchive:
		if it.info == nil {
			fi, err := os.Stat(it.String())
			if err != nil {
				return Stat{}, err
			}
			it.info = fi
		}
		uid, gid := fileOwner(it.info)
		return Stat{Mode: uint32(it.info.Mode()), Uid: uid, Gid: gid, Size: it.info.Size(), ModTime: it.info.ModTime()}, nil
	case KindArchiveFile:
		return Stat{
			Mode:    uint32(it.member.mode),
			Uid:     it.member.uid,
			Gid:     it.member.gid,
			Size:    it.member.size,
			ModTime: it.member.modTime,
		}, nil
	default:
		return Stat{}, os.ErrInvalid
	}
}

// Mount returns the filesystem record this item lives on, resolved
// lazily and memoised per item (spec.md §3: "lazy mount:
// FilesystemRecord").
func (it *Item) Mount() platformfs.Record {
	it.mountOnce.Do(func() {
		if it.ctx == nil || it.ctx.FS == nil {
			return
		}
		it.mountRec, _ = it.ctx.FS.Lookup(it.String())
	})
	return it.mountRec
}

// Repository returns the detected owning SCM, resolved lazily and
// memoised per item (spec.md §3: "lazy repository: RepositoryInfo").
func (it *Item) Repository() repository.Info {
	it.repoOnce.Do(func() {
		if it.ctx == nil || it.ctx.Repo == nil {
			return
		}
		dir := it.Dir()
		if it.Kind == KindArchiveFile {
			dir = it.archive.Dir()
		}
		it.repoInfo = it.ctx.Repo.Detect(dir)
	})
	return it.repoInfo
}

// ModTime returns the item's modification time, used by the
// incremental cache's mtime algorithm.
func (it *Item) ModTime() time.Time {
	st, err := it.Stat()
	if err != nil {
		return time.Time{}
	}
	return st.ModTime
}
