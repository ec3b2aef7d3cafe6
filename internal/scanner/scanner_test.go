package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tehmaze/classified/internal/incremental"
	"github.com/tehmaze/classified/internal/meta"
	"github.com/tehmaze/classified/internal/probe"
)

type fakeProbe struct {
	name    string
	targets []string
	calls   []string
	fail    error
}

func (p *fakeProbe) Name() string          { return p.name }
func (p *fakeProbe) Targets() []string     { return p.targets }
func (p *fakeProbe) CanProbe(*meta.Item) bool { return true }
func (p *fakeProbe) Run(item *meta.Item) error {
	p.calls = append(p.calls, item.String())
	return p.fail
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

func TestScanDispatchesMatchingProbeOnly(t *testing.T) {
	root := t.TempDir()
	must(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello world\n"), 0o644))

	text := &fakeProbe{name: "text-only", targets: []string{"text/*"}}
	any := &fakeProbe{name: "any", targets: nil}
	binary := &fakeProbe{name: "binary-only", targets: []string{"application/x-nope"}}

	s := New(&meta.Context{MaxDepth: -1}, Options{}, map[string]probe.Probe{
		"text-only":   text,
		"any":         any,
		"binary-only": binary,
	})
	s.Scan(root)

	if len(text.calls) != 1 {
		t.Fatalf("expected text probe to run once, got %d", len(text.calls))
	}
	if len(any.calls) != 1 {
		t.Fatalf("expected wildcard probe to run once, got %d", len(any.calls))
	}
	if len(binary.calls) != 0 {
		t.Fatalf("expected non-matching probe to never run, got %d", len(binary.calls))
	}
}

func TestScanExcludeNameSkipsItem(t *testing.T) {
	root := t.TempDir()
	must(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("x"), 0o644))

	any := &fakeProbe{name: "any"}
	s := New(&meta.Context{MaxDepth: -1}, Options{
		ExcludeName: []string{"**/secret.txt"},
	}, map[string]probe.Probe{"any": any})
	s.Scan(root)

	if len(any.calls) != 0 {
		t.Fatalf("expected excluded file to never be probed, got %d calls", len(any.calls))
	}
}

func TestScanMinDepthSkipsShallowItems(t *testing.T) {
	root := t.TempDir()
	must(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	must(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("x"), 0o644))
	must(t, os.WriteFile(filepath.Join(root, "sub", "deep.txt"), []byte("x"), 0o644))

	any := &fakeProbe{name: "any"}
	s := New(&meta.Context{MaxDepth: -1}, Options{MinDepth: 2}, map[string]probe.Probe{"any": any})
	s.Scan(root)

	if len(any.calls) != 1 {
		t.Fatalf("expected only the deep file to be probed, got %d", len(any.calls))
	}
	if filepath.Base(any.calls[0]) != "deep.txt" {
		t.Fatalf("expected deep.txt to be probed, got %s", any.calls[0])
	}
}

func TestScanCorruptionErrorInhibitsIncremental(t *testing.T) {
	root := t.TempDir()
	must(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))

	dbPath := filepath.Join(t.TempDir(), "incremental.db")
	store, err := incremental.Open(dbPath, incremental.AlgorithmMtime, incremental.DefaultBlockSize)
	must(t, err)
	defer store.Close()

	failing := &fakeProbe{name: "failing", fail: &meta.CorruptionError{Path: "a.txt", Err: os.ErrInvalid}}
	s := New(&meta.Context{MaxDepth: -1}, Options{Incremental: store}, map[string]probe.Probe{"failing": failing})
	s.Scan(root)

	item, err := meta.NewPath(filepath.Join(root, "a.txt"))
	must(t, err)
	it := meta.Maybe(&meta.Context{MaxDepth: -1}, item, 1, nil)
	in, err := store.Contains(it)
	must(t, err)
	if in {
		t.Fatalf("expected a.txt to stay out of the incremental cache after a corruption error")
	}
}

func TestScanIncrementalSkipsSecondRun(t *testing.T) {
	root := t.TempDir()
	must(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))

	dbPath := filepath.Join(t.TempDir(), "incremental.db")
	store, err := incremental.Open(dbPath, incremental.AlgorithmMtime, incremental.DefaultBlockSize)
	must(t, err)
	defer store.Close()

	probeRun := &fakeProbe{name: "ok"}
	s := New(&meta.Context{MaxDepth: -1}, Options{Incremental: store}, map[string]probe.Probe{"ok": probeRun})

	s.Scan(root)
	if len(probeRun.calls) != 1 {
		t.Fatalf("expected first scan to probe a.txt, got %d calls", len(probeRun.calls))
	}

	s.Scan(root)
	if len(probeRun.calls) != 1 {
		t.Fatalf("expected second scan to skip the unchanged a.txt, got %d calls", len(probeRun.calls))
	}
}
