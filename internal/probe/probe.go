// Package probe implements the detector framework of spec.md §4.4: a
// registry of named detectors, each declaring the MIME patterns it
// applies to, a name/repo ignore policy, and a hash-based suppression
// mechanism on top of internal/checksum. It generalizes the source's
// ProbeTracker metaclass (which populated two module-level dicts,
// PROBES and IGNORE, as a side effect of class definition) into an
// explicit factory registry, matching spec.md §9's "replace global
// mutable state with an explicit context" direction while keeping the
// "populated once, read-only thereafter" lifecycle spec.md §5 assigns
// it.
package probe

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/tehmaze/classified/internal/checksum"
	"github.com/tehmaze/classified/internal/meta"
)

// Finding is one emitted detection, forwarded to a Reporter (spec.md
// §3's ProbeFinding).
type Finding struct {
	Probe            string
	Item             *meta.Item
	Fields           map[string]string
	Digest           string
	Uid, Gid         int
	Username, Group  string
	Filename         string
	FilenameRelative string
}

// Reporter receives findings that survived hash-suppression. The
// report sinks of spec.md §4.8 implement this.
type Reporter interface {
	Report(Finding)
}

// Probe is the operation set every detector implements.
type Probe interface {
	Name() string
	// Targets lists the MIME glob patterns this probe applies to. A
	// nil/empty slice means "any MIME type" (spec.md §4.4's PAN,
	// Password and PCAP probes declare no target at all).
	Targets() []string
	CanProbe(item *meta.Item) bool
	Run(item *meta.Item) error
}

// Options carries the per-probe configuration a Factory needs to
// build one. Extra surfaces probe-specific options (e.g.
// "probe:pan.limit") without the probe package depending on
// internal/config.
type Options struct {
	Ignore      *Ignore
	Algorithm   string
	HashContext string // "file", "line", or "format" (spec.md §4.4)
	Format      string
	Reporter    Reporter
	Extra       func(key string) (string, bool)
}

// Factory constructs a configured Probe.
type Factory func(Options) Probe

var registry = map[string]Factory{}

// Register adds a probe factory under name. Called once per probe
// package from its init, mirroring checksum.Register.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New constructs the named probe, mirroring the source's get_probe
// (spec.md: "NotImplemented — unknown probe... warning, scanner
// continues").
func New(name string, opts Options) (Probe, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("probe: unknown probe %q", name)
	}
	return factory(opts), nil
}

// Names returns every registered probe name.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Base implements the name/ignore/record plumbing shared by every
// concrete probe, matching the source's Probe base class.
type Base struct {
	ProbeName   string
	Ignore      *Ignore
	Algorithm   string
	HashContext string
	Format      string
	Reporter    Reporter
}

// NewBase builds the shared plumbing for a probe named name, falling
// back to sha1/line context to match the source's defaults.
func NewBase(name, format string, opts Options) Base {
	algorithm := opts.Algorithm
	if algorithm == "" {
		algorithm = "sha1"
	}
	context := opts.HashContext
	if context == "" {
		context = "line"
	}
	if opts.Format != "" {
		format = opts.Format
	}
	ignore := opts.Ignore
	if ignore == nil {
		ignore = &Ignore{}
	}
	return Base{
		ProbeName:   name,
		Ignore:      ignore,
		Algorithm:   algorithm,
		HashContext: context,
		Format:      format,
		Reporter:    opts.Reporter,
	}
}

func (b *Base) Name() string { return b.ProbeName }

// CanProbe reports whether item survives the name/repo ignore lists
// (spec.md §4.4: "can_probe(item) returns false if any of
// {ignore_name, ignore_repo} matches").
func (b *Base) CanProbe(item *meta.Item) bool {
	return !b.Ignore.MatchesName(item.String()) && !b.Ignore.MatchesRepo(item)
}

// Record computes the suppression digest, drops the finding if it
// matches an ignored hash, and otherwise resolves owner metadata and
// forwards to the Reporter (spec.md §4.4's Probe.record).
func (b *Base) Record(item *meta.Item, fields map[string]string) error {
	digest, ignored, err := b.ignoreHash(item, fields)
	if err != nil {
		return err
	}
	if ignored {
		return nil
	}

	st, err := item.Stat()
	if err != nil {
		return err
	}

	username := lookupUsername(st.Uid)
	group := lookupGroup(st.Gid)

	filename := item.String()
	relative := filename
	if cwd, err := os.Getwd(); err == nil && cwd != "" {
		relative = strings.Replace(filename, cwd, ".", 1)
	}

	if b.Reporter == nil {
		return nil
	}
	b.Reporter.Report(Finding{
		Probe:            b.ProbeName,
		Item:             item,
		Fields:           fields,
		Digest:           digest,
		Uid:              st.Uid,
		Gid:              st.Gid,
		Username:         username,
		Group:            group,
		Filename:         filename,
		FilenameRelative: relative,
	})
	return nil
}

// ignoreHash computes the suppression digest for context
// {file,line,format} and reports whether it matches an ignored hash
// (spec.md §4.4's Probe.ignore_hash).
func (b *Base) ignoreHash(item *meta.Item, fields map[string]string) (digest string, ignored bool, err error) {
	method, err := checksum.New(b.Algorithm)
	if err != nil {
		return "", false, err
	}

	switch b.HashContext {
	case "file":
		rc, err := item.Open()
		if err != nil {
			return "", false, err
		}
		defer rc.Close()
		buf := make([]byte, 32*1024)
		for {
			n, readErr := rc.Read(buf)
			if n > 0 {
				method.Write(buf[:n])
			}
			if readErr != nil {
				break
			}
		}

	case "line":
		raw, ok := fields["raw"]
		if !ok {
			// No raw line available: the source returns (None,
			// False) here, meaning the caller reports unconditionally.
			return "", false, nil
		}
		method.Write([]byte(raw))

	case "format":
		method.Write([]byte(renderFormat(b.Format, fields)))

	default:
		return "", false, fmt.Errorf("probe: unsupported hash context %q", b.HashContext)
	}

	digest = method.HexSum()
	return digest, b.Ignore.MatchesHash(digest), nil
}

// AllFields merges the probe-supplied Fields with the synthesized
// record metadata (hash, filename, uid, ...), giving report sinks a
// single map to render their format templates against (spec.md §4.8).
func (f Finding) AllFields() map[string]string {
	out := make(map[string]string, len(f.Fields)+7)
	for k, v := range f.Fields {
		out[k] = v
	}
	out["hash"] = f.Digest
	out["filename"] = f.Filename
	out["filename_relative"] = f.FilenameRelative
	out["uid"] = strconv.Itoa(f.Uid)
	out["gid"] = strconv.Itoa(f.Gid)
	out["username"] = f.Username
	out["group"] = f.Group
	out["probe"] = f.Probe
	return out
}

func lookupUsername(uid int) string {
	if u, err := user.LookupId(strconv.Itoa(uid)); err == nil {
		return u.Username
	}
	return strconv.Itoa(uid)
}

func lookupGroup(gid int) string {
	if g, err := user.LookupGroupId(strconv.Itoa(gid)); err == nil {
		return g.Name
	}
	return strconv.Itoa(gid)
}
