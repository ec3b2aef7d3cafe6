package platformfs

import "testing"

func TestSelectLongestPrefix(t *testing.T) {
	records := []Record{
		{Mount: "/"},
		{Mount: "/home"},
		{Mount: "/home/user/data"},
	}

	r, ok := Select("/home/user/data/file.txt", records)
	if !ok {
		t.Fatal("expected a match")
	}
	if r.Mount != "/home/user/data" {
		t.Errorf("Mount = %q, want %q", r.Mount, "/home/user/data")
	}
}

func TestSelectNoMatch(t *testing.T) {
	records := []Record{{Mount: "/srv"}}
	if _, ok := Select("/home/user", records); ok {
		t.Fatal("expected no match")
	}
}

func TestContextCachesWithinTTL(t *testing.T) {
	calls := 0
	ctx := &Context{list: func() ([]Record, error) {
		calls++
		return []Record{{Mount: "/"}}, nil
	}}

	if _, err := ctx.Filesystems(); err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.Filesystems(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("enumerator called %d times, want 1 (cache should be reused)", calls)
	}
}
