// Package platformfs enumerates mounted filesystems and maps a path
// to the filesystem record that contains it. The core only ever calls
// list_filesystems() through Context.Filesystems / Context.Lookup; the
// platform-specific enumeration below is the thin adapter spec.md §1
// places out of the core's scope.
package platformfs

import (
	"bufio"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Record describes one mounted filesystem, matching spec.md's
// FilesystemRecord: {device, mount_point, type, options}.
type Record struct {
	Device  string
	Mount   string
	Type    string
	Options []string
}

// cacheTTL is the lifetime of the enumerated filesystem list before a
// re-scan, matching spec.md §3/§5's 60-second TTL.
const cacheTTL = 60 * time.Second

// Context caches the enumerated filesystem list for cacheTTL, as a
// field rather than the package-level global the original source
// used for Mount._fs_cache (spec.md §9, "Global mutable state").
type Context struct {
	mu        sync.Mutex
	cached    []Record
	expiresAt time.Time

	// list is the platform-specific enumerator; overridable in tests.
	list func() ([]Record, error)
}

// NewContext builds a Context wired to this platform's enumerator.
func NewContext() *Context {
	return &Context{list: listFilesystems}
}

// Filesystems returns the current mounted-filesystem list, refreshing
// it if the cached copy has expired.
func (c *Context) Filesystems() ([]Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.expiresAt) && c.cached != nil {
		return c.cached, nil
	}

	records, err := c.list()
	if err != nil {
		return nil, err
	}
	c.cached = records
	c.expiresAt = time.Now().Add(cacheTTL)
	return records, nil
}

// Lookup returns the filesystem record whose mount point is the
// longest matching prefix of path, matching spec.md §6: "selects the
// entry whose mount is the longest prefix of the normalised path."
func (c *Context) Lookup(path string) (Record, bool) {
	records, err := c.Filesystems()
	if err != nil {
		return Record{}, false
	}
	return Select(path, records)
}

// Select implements the longest-prefix match independent of any
// Context, for callers (and tests) that already have a records slice.
func Select(path string, records []Record) (Record, bool) {
	var best Record
	found := false
	for _, r := range records {
		if !strings.HasPrefix(path, r.Mount) {
			continue
		}
		if !found || len(r.Mount) > len(best.Mount) {
			best = r
			found = true
		}
	}
	return best, found
}

func listFilesystems() ([]Record, error) {
	switch runtime.GOOS {
	case "linux":
		return listFilesystemsLinux()
	default:
		// BSD/Darwin (`mount`/getfsstat64) and Windows (WMI
		// Win32_LogicalDisk) enumeration are platform adapters outside
		// this core's scope per spec.md §1/§6; a non-Linux build sees
		// an empty filesystem list, which only disables exclude_fs
		// filtering, not the scan itself.
		return nil, nil
	}
}

// listFilesystemsLinux parses /proc/mounts, falling back to /etc/mtab,
// matching spec.md §6's Linux adapter.
func listFilesystemsLinux() ([]Record, error) {
	for _, path := range []string{"/proc/mounts", "/etc/mtab"} {
		fd, err := os.Open(path)
		if err != nil {
			continue
		}
		defer fd.Close()

		var records []Record
		scanner := bufio.NewScanner(fd)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) < 4 {
				continue
			}
			records = append(records, Record{
				Device:  fields[0],
				Mount:   fields[1],
				Type:    fields[2],
				Options: strings.Split(fields[3], ","),
			})
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return records, nil
	}
	return nil, nil
}
