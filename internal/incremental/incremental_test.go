package incremental

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeItem struct {
	path    string
	modTime time.Time
	content string
}

func (f *fakeItem) String() string       { return f.path }
func (f *fakeItem) ModTime() time.Time   { return f.modTime }
func (f *fakeItem) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.content)), nil
}

func TestStoreContentDigestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "cache.db"), "sha1", 0)
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer s.Close()

	item := &fakeItem{path: "/a/b.txt", content: "hello world"}

	ok, err := s.Contains(item)
	if err != nil {
		t.Fatalf("Contains: %s", err)
	}
	if ok {
		t.Fatalf("unseen item should not be in the cache")
	}

	if err := s.Add(item); err != nil {
		t.Fatalf("Add: %s", err)
	}

	ok, err = s.Contains(item)
	if err != nil {
		t.Fatalf("Contains after Add: %s", err)
	}
	if !ok {
		t.Fatalf("item should be in the cache after Add")
	}
}

func TestStoreDetectsContentChange(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "cache.db"), "sha1", 0)
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer s.Close()

	original := &fakeItem{path: "/a/b.txt", content: "version one"}
	if err := s.Add(original); err != nil {
		t.Fatalf("Add: %s", err)
	}

	changed := &fakeItem{path: "/a/b.txt", content: "version two"}
	ok, err := s.Contains(changed)
	if err != nil {
		t.Fatalf("Contains: %s", err)
	}
	if ok {
		t.Fatalf("changed content should not match the stored digest")
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")

	s1, err := Open(path, "sha1", 0)
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	item := &fakeItem{path: "/a/b.txt", content: "hello"}
	if err := s1.Add(item); err != nil {
		t.Fatalf("Add: %s", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %s", err)
	}

	s2, err := Open(path, "sha1", 0)
	if err != nil {
		t.Fatalf("reopen: %s", err)
	}
	defer s2.Close()

	ok, err := s2.Contains(item)
	if err != nil {
		t.Fatalf("Contains: %s", err)
	}
	if !ok {
		t.Fatalf("entry should survive a close/reopen cycle")
	}
}

func TestStoreMtimeAlgorithmAvoidsReadingContent(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "cache.db"), AlgorithmMtime, 0)
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer s.Close()

	now := time.Now().Truncate(time.Second)
	item := &fakeItem{path: "/a/b.txt", modTime: now, content: "irrelevant"}
	if err := s.Add(item); err != nil {
		t.Fatalf("Add: %s", err)
	}

	unchanged := &fakeItem{path: "/a/b.txt", modTime: now, content: "different bytes, same mtime"}
	ok, err := s.Contains(unchanged)
	if err != nil {
		t.Fatalf("Contains: %s", err)
	}
	if !ok {
		t.Fatalf("mtime algorithm should ignore content changes at equal mtime")
	}
}

func TestOpenCreatesFileWithRestrictivePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")

	s, err := Open(path, "sha1", 0)
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer s.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %s", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("store file mode = %o, want 0600", info.Mode().Perm())
	}
}
