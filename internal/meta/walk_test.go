package meta

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func collect(w *Walker) []*Item {
	var items []*Item
	for {
		it, ok := w.Next()
		if !ok {
			break
		}
		items = append(items, it)
	}
	return items
}

func TestWalkDirectoryTreeDepthFirst(t *testing.T) {
	root := t.TempDir()
	must(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	must(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("hello"), 0o644))
	must(t, os.WriteFile(filepath.Join(root, "sub", "nested.txt"), []byte("world"), 0o644))

	ctx := &Context{MaxDepth: -1}
	items := collect(Walk(ctx, root, WalkOptions{}))

	var files, dirs int
	for _, it := range items {
		switch it.Kind {
		case KindFile:
			files++
		case KindDir:
			dirs++
		}
	}
	if files != 2 {
		t.Fatalf("expected 2 files, got %d", files)
	}
	// root + sub
	if dirs != 2 {
		t.Fatalf("expected 2 dirs, got %d", dirs)
	}

	for _, it := range items {
		if filepath.Base(it.String()) == "nested.txt" && it.Depth() != 2 {
			t.Fatalf("nested.txt depth = %d, want 2", it.Depth())
		}
	}
}

func TestWalkRespectsMaxDepth(t *testing.T) {
	root := t.TempDir()
	must(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	must(t, os.WriteFile(filepath.Join(root, "a", "b", "deep.txt"), []byte("x"), 0o644))

	ctx := &Context{MaxDepth: 1}
	items := collect(Walk(ctx, root, WalkOptions{}))

	for _, it := range items {
		if filepath.Base(it.String()) == "deep.txt" {
			t.Fatalf("deep.txt should have been excluded by MaxDepth")
		}
	}
}

func TestWalkExcludeLinkDropsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real.txt")
	must(t, os.WriteFile(target, []byte("x"), 0o644))
	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %s", err)
	}

	ctx := &Context{MaxDepth: -1}
	items := collect(Walk(ctx, root, WalkOptions{ExcludeLink: true}))

	for _, it := range items {
		if filepath.Base(it.String()) == "link.txt" {
			t.Fatalf("link.txt should have been excluded")
		}
	}
}

func TestWalkDeflatesZipArchiveMembers(t *testing.T) {
	root := t.TempDir()
	archivePath := filepath.Join(root, "bundle.zip")

	f, err := os.Create(archivePath)
	must(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("inner/data.txt")
	must(t, err)
	_, err = w.Write([]byte(`{"k":"v"}`))
	must(t, err)
	must(t, zw.Close())
	must(t, f.Close())

	ctx := &Context{MaxDepth: -1, Deflate: true}
	items := collect(Walk(ctx, root, WalkOptions{}))

	var sawArchive, sawMember bool
	var memberDepth int
	for _, it := range items {
		if it.Kind == KindArchive && filepath.Base(it.String()) == "bundle.zip" {
			sawArchive = true
		}
		if it.Kind == KindArchiveFile {
			sawMember = true
			memberDepth = it.Depth()
		}
	}
	if !sawArchive {
		t.Fatalf("expected bundle.zip to be upgraded to an archive")
	}
	if !sawMember {
		t.Fatalf("expected archive member to be yielded")
	}
	if memberDepth != 3 {
		t.Fatalf("inner/data.txt depth = %d, want 3 (archive depth 1 + 2 segments)", memberDepth)
	}
}

func TestWalkNoDeflateKeepsArchivesAsPlainFiles(t *testing.T) {
	root := t.TempDir()
	archivePath := filepath.Join(root, "bundle.zip")

	f, err := os.Create(archivePath)
	must(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("data.txt")
	must(t, err)
	must(t, zw.Close())
	must(t, f.Close())

	ctx := &Context{MaxDepth: -1, Deflate: false}
	items := collect(Walk(ctx, root, WalkOptions{}))

	for _, it := range items {
		if filepath.Base(it.String()) == "bundle.zip" && it.Kind != KindFile {
			t.Fatalf("expected bundle.zip to stay a plain file when Deflate is false, got kind %d", it.Kind)
		}
	}
}

func TestWalkCloseStopsProducer(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		must(t, os.WriteFile(filepath.Join(root, "f"+string(rune('0'+i))+".txt"), []byte("x"), 0o644))
	}

	ctx := &Context{MaxDepth: -1}
	w := Walk(ctx, root, WalkOptions{})
	it, ok := w.Next()
	if !ok || it == nil {
		t.Fatalf("expected at least one item before closing")
	}
	w.Close()
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

func TestWalkOrdersDeterministically(t *testing.T) {
	root := t.TempDir()
	names := []string{"b.txt", "a.txt", "c.txt"}
	for _, n := range names {
		must(t, os.WriteFile(filepath.Join(root, n), []byte("x"), 0o644))
	}
	sort.Strings(names)

	ctx := &Context{MaxDepth: -1}
	items := collect(Walk(ctx, root, WalkOptions{}))

	var got []string
	for _, it := range items {
		if it.Kind == KindFile {
			got = append(got, filepath.Base(it.String()))
		}
	}
	for i := range names {
		if got[i] != names[i] {
			t.Fatalf("file order mismatch: got %v want %v", got, names)
		}
	}
}
