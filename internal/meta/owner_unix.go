//go:build !windows

package meta

import (
	"os"
	"syscall"
)

// fileOwner extracts the uid/gid a real (non-archive) file is owned
// by, used by probe.Record's username/group resolution (spec.md
// §4.4). Archive members carry their own uid/gid in member metadata
// instead (spec.md §3).
func fileOwner(info os.FileInfo) (uid, gid int) {
	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		return int(sys.Uid), int(sys.Gid)
	}
	return 0, 0
}
