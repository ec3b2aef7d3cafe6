package password

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tehmaze/classified/internal/meta"
	"github.com/tehmaze/classified/internal/probe"
)

type collector struct {
	findings []probe.Finding
}

func (c *collector) Report(f probe.Finding) { c.findings = append(c.findings, f) }

func newItem(t *testing.T, dir, name, content string) *meta.Item {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}
	p, err := meta.NewPath(path)
	if err != nil {
		t.Fatalf("NewPath: %s", err)
	}
	ctx := &meta.Context{MaxDepth: -1}
	return meta.Maybe(ctx, p, 0, nil)
}

func TestPasswordHeuristicMatch(t *testing.T) {
	dir := t.TempDir()
	item := newItem(t, dir, "config.ini", "username=alice\npassword=hunter2\n")

	c := &collector{}
	p := New(probe.Options{Reporter: c, Ignore: &probe.Ignore{}}).(*Password)
	if err := p.Run(item); err != nil {
		t.Fatalf("Run: %s", err)
	}

	if len(c.findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(c.findings))
	}
	if c.findings[0].Fields["password"] != "hunter2" {
		t.Fatalf("password = %q, want hunter2", c.findings[0].Fields["password"])
	}
}

func TestPgpassColumnMatch(t *testing.T) {
	dir := t.TempDir()
	item := newItem(t, dir, ".pgpass", "localhost:5432:mydb:alice:s3cret\n")

	c := &collector{}
	p := New(probe.Options{Reporter: c, Ignore: &probe.Ignore{}}).(*Password)
	if err := p.Run(item); err != nil {
		t.Fatalf("Run: %s", err)
	}

	var sawPgpass bool
	for _, f := range c.findings {
		if f.Fields["type"] == "pgpass" && f.Fields["password"] == "s3cret" {
			sawPgpass = true
		}
	}
	if !sawPgpass {
		t.Fatalf("expected a pgpass finding, got %+v", c.findings)
	}
}

func TestNoMatchOnCleanFile(t *testing.T) {
	dir := t.TempDir()
	item := newItem(t, dir, "readme.txt", "nothing interesting here\n")

	c := &collector{}
	p := New(probe.Options{Reporter: c, Ignore: &probe.Ignore{}}).(*Password)
	if err := p.Run(item); err != nil {
		t.Fatalf("Run: %s", err)
	}
	if len(c.findings) != 0 {
		t.Fatalf("expected no findings, got %+v", c.findings)
	}
}
