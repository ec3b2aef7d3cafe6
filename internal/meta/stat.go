package meta

import "time"

// Stat is the synthesized stat record spec.md §3 requires: "stat()
// synthesises a stat record from member metadata (mode/uid/gid/size/
// mtime)" for archive members, and the plain os.Stat equivalent for
// real files.
type Stat struct {
	Mode    uint32
	Uid     int
	Gid     int
	Size    int64
	ModTime time.Time
}
