package repository

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectGit(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	d := NewDetector()
	info := d.Detect(sub)
	if info.Kind != Git {
		t.Fatalf("Kind = %q, want git", info.Kind)
	}
	if info.Root != root {
		t.Errorf("Root = %q, want %q", info.Root, root)
	}
}

func TestDetectNone(t *testing.T) {
	root := t.TempDir()
	d := NewDetector()
	info := d.Detect(root)
	if info.Kind != "" {
		t.Fatalf("Kind = %q, want empty", info.Kind)
	}
}

func TestDetectIsDeterministicAndCached(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".hg", "store"), 0o755); err != nil {
		t.Fatal(err)
	}

	d := NewDetector()
	first := d.Detect(root)
	second := d.Detect(root)
	if first != second {
		t.Errorf("Detect not deterministic: %+v != %+v", first, second)
	}
}
