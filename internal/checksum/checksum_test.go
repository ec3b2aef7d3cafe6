package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKnownAlgorithmsRoundTrip(t *testing.T) {
	for _, name := range []string{"crc32", "adler32", "md5", "sha1", "sha256", "sha512", "sha3-256", "fnv-1a-64"} {
		d, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if d.Name() != name {
			t.Errorf("Name() = %q, want %q", d.Name(), name)
		}
		d.Write([]byte("hello world"))
		first := d.HexSum()

		d.Reset()
		d.Write([]byte("hello world"))
		second := d.HexSum()

		if first != second {
			t.Errorf("%s: digest not deterministic: %s != %s", name, first, second)
		}
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	if _, err := New("does-not-exist"); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestSumFileMatchesInMemory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	content := []byte("the quick brown fox jumps over the lazy dog")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	d, _ := New("sha256")
	d.Write(content)
	want := d.HexSum()

	got, err := SumFile("sha256", path, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("SumFile with tiny blocksize = %s, want %s", got, want)
	}
}
