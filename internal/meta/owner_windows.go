//go:build windows

package meta

import "os"

// fileOwner has no syscall.Stat_t equivalent on Windows; uid/gid fall
// back to 0, matching how the original handled platforms without a
// POSIX stat (username/group resolution then falls back to the
// numeric id, per spec.md §4.4).
func fileOwner(info os.FileInfo) (uid, gid int) {
	return 0, 0
}
