package meta

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nwaples/rardecode"
	"github.com/ulikunitz/xz"
)

// archiveFormat tags the archive decoder kind, replacing the runtime
// type-checking the source used (spec.md §9, "Archive polymorphism").
type archiveFormat int

const (
	formatTar archiveFormat = iota
	formatZip
	formatGzip
	formatBzip2
	formatXz
	formatRar
)

// memberMeta describes one archive member, enough to synthesize a
// Stat() (spec.md §3) and to reopen its content on demand.
type memberMeta struct {
	name      string
	mode      os.FileMode
	uid, gid  int
	size      int64
	modTime   time.Time
	isRegular bool
}

// decoder is the one-interface-per-variant replacement for the
// source's isinstance-based dispatch across tarfile/zipfile/rarfile/
// bz2/gzip/lzma handles.
type decoder interface {
	Members() ([]memberMeta, error)
	Open(name string) (io.ReadCloser, error)
}

func mimeToFormat(mime string) (archiveFormat, bool) {
	switch mime {
	case "application/x-tar":
		return formatTar, true
	case "application/zip":
		return formatZip, true
	case "application/gzip", "application/x-gzip":
		return formatGzip, true
	case "application/x-bzip2":
		return formatBzip2, true
	case "application/x-xz":
		return formatXz, true
	case "application/x-rar-compressed", "application/x-rar":
		return formatRar, true
	}
	return 0, false
}

// SupportedMimetypes lists the MIME types File.Maybe will attempt to
// deflate, per spec.md §4.1.
func SupportedMimetypes() []string {
	return []string{
		"application/x-tar",
		"application/zip",
		"application/gzip",
		"application/x-gzip",
		"application/x-bzip2",
		"application/x-xz",
		"application/x-rar-compressed",
	}
}

// newDecompressor opens the single decompression layer (not the tar
// layer on top of it) for gzip/bzip2/xz content at path.
func newDecompressor(format archiveFormat, path string) (func() (io.Reader, io.Closer, error), error) {
	switch format {
	case formatGzip:
		return func() (io.Reader, io.Closer, error) {
			fd, err := os.Open(path)
			if err != nil {
				return nil, nil, err
			}
			gz, err := gzip.NewReader(fd)
			if err != nil {
				fd.Close()
				return nil, nil, err
			}
			return gz, multiCloser{gz, fd}, nil
		}, nil
	case formatBzip2:
		return func() (io.Reader, io.Closer, error) {
			fd, err := os.Open(path)
			if err != nil {
				return nil, nil, err
			}
			return bzip2.NewReader(fd), fd, nil
		}, nil
	case formatXz:
		return func() (io.Reader, io.Closer, error) {
			fd, err := os.Open(path)
			if err != nil {
				return nil, nil, err
			}
			xr, err := xz.NewReader(fd)
			if err != nil {
				fd.Close()
				return nil, nil, err
			}
			return xr, fd, nil
		}, nil
	}
	return nil, &ErrUnsupportedFormat{}
}

type multiCloser struct {
	r interface{ Close() error }
	c io.Closer
}

func (m multiCloser) Close() error {
	_ = m.r.Close()
	return m.c.Close()
}

// isTarBundle peeks at a decompressed stream to see if it's wrapping
// a tar archive (POSIX ustar magic at offset 257) or a single
// compressed file, mirroring tarfile.is_tarfile's role in the source.
func isTarBundle(peek []byte) bool {
	const magicOffset = 257
	if len(peek) < magicOffset+5 {
		return false
	}
	magic := peek[magicOffset : magicOffset+5]
	return string(magic) == "ustar"
}

// --- tar ---

type tarDecoder struct {
	open func() (io.ReadCloser, error)
}

func (d *tarDecoder) Members() ([]memberMeta, error) {
	rc, err := d.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var members []memberMeta
	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &CorruptionError{Err: err}
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		members = append(members, memberMeta{
			name:      strings.TrimPrefix(hdr.Name, "./"),
			mode:      os.FileMode(hdr.Mode),
			uid:       hdr.Uid,
			gid:       hdr.Gid,
			size:      hdr.Size,
			modTime:   hdr.ModTime,
			isRegular: true,
		})
	}
	return members, nil
}

func (d *tarDecoder) Open(name string) (io.ReadCloser, error) {
	rc, err := d.open()
	if err != nil {
		return nil, err
	}
	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			rc.Close()
			return nil, &CorruptionError{Path: name, Err: io.ErrUnexpectedEOF}
		}
		if err != nil {
			rc.Close()
			return nil, &CorruptionError{Path: name, Err: err}
		}
		if strings.TrimPrefix(hdr.Name, "./") == name {
			return tarEntry{Reader: tr, closer: rc}, nil
		}
	}
}

type tarEntry struct {
	io.Reader
	closer io.Closer
}

func (t tarEntry) Close() error { return t.closer.Close() }

// --- zip ---

type zipDecoder struct {
	zr *zip.ReadCloser
}

func (d *zipDecoder) Members() ([]memberMeta, error) {
	var members []memberMeta
	for _, f := range d.zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		members = append(members, memberMeta{
			name:      f.Name,
			mode:      f.Mode(),
			size:      int64(f.UncompressedSize64),
			modTime:   f.Modified,
			isRegular: true,
		})
	}
	return members, nil
}

func (d *zipDecoder) Open(name string) (io.ReadCloser, error) {
	for _, f := range d.zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, &CorruptionError{Path: name, Err: err}
			}
			return rc, nil
		}
	}
	return nil, &CorruptionError{Path: name, Err: os.ErrNotExist}
}

// --- rar ---

type rarDecoder struct {
	path string
}

func (d *rarDecoder) Members() ([]memberMeta, error) {
	rr, err := rardecode.OpenReader(d.path, "")
	if err != nil {
		return nil, &CorruptionError{Path: d.path, Err: err}
	}
	defer rr.Close()

	var members []memberMeta
	for {
		hdr, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &CorruptionError{Path: d.path, Err: err}
		}
		if hdr.IsDir {
			continue
		}
		members = append(members, memberMeta{
			name:      hdr.Name,
			mode:      0o644,
			size:      hdr.UnPackedSize,
			modTime:   hdr.ModificationTime,
			isRegular: true,
		})
	}
	return members, nil
}

func (d *rarDecoder) Open(name string) (io.ReadCloser, error) {
	rr, err := rardecode.OpenReader(d.path, "")
	if err != nil {
		return nil, &CorruptionError{Path: name, Err: err}
	}
	for {
		hdr, err := rr.Next()
		if err == io.EOF {
			rr.Close()
			return nil, &CorruptionError{Path: name, Err: io.ErrUnexpectedEOF}
		}
		if err != nil {
			rr.Close()
			return nil, &CorruptionError{Path: name, Err: err}
		}
		if hdr.Name == name {
			return rarEntry{rr: rr}, nil
		}
	}
}

type rarEntry struct {
	rr *rardecode.ReadCloser
}

func (r rarEntry) Read(p []byte) (int, error) { return r.rr.Read(p) }
func (r rarEntry) Close() error                { return r.rr.Close() }

// --- single compressed file (non-tar gzip/bzip2/xz) ---

type singleDecoder struct {
	open    func() (io.ReadCloser, error)
	size    int64
	modTime time.Time
}

func (d *singleDecoder) Members() ([]memberMeta, error) {
	return []memberMeta{{name: "", mode: 0o644, size: d.size, modTime: d.modTime, isRegular: true}}, nil
}

func (d *singleDecoder) Open(name string) (io.ReadCloser, error) {
	return d.open()
}

// readPeek reads up to n bytes from open() without consuming the
// caller's own handle, used to classify/peek a decompressed stream.
func readPeek(open func() (io.Reader, io.Closer, error), n int) ([]byte, error) {
	r, c, err := open()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}
