// Package scanner implements the orchestration layer of spec.md §4.7:
// it drives the walker, runs the ordered exclusion pipeline, dispatches
// surviving items to the probes whose MIME pattern matches, and gates
// incremental-cache insertion on every dispatched probe succeeding.
// It replaces the source's module-level Scanner class and its
// PROBES/IGNORE globals with an explicit Context built at construction
// (spec.md §9).
package scanner

import (
	"errors"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tehmaze/classified/internal/incremental"
	"github.com/tehmaze/classified/internal/meta"
	"github.com/tehmaze/classified/internal/probe"
)

// RepoExclude pairs an SCM kind with a glob pattern; kind "any"
// applies regardless of the detected kind (spec.md §4.7 step 4).
type RepoExclude struct {
	Kind    string
	Pattern string
}

// Options configures a Scanner's exclusion and traversal policy.
type Options struct {
	ExcludeName []string
	ExcludeType []string
	ExcludeFS   []string
	ExcludeRepo []RepoExclude
	ExcludeLink bool

	// MinDepth/MaxDepth bound which items are dispatched to probes;
	// -1 means unbounded (spec.md §4.7), and New treats a zero value
	// as -1 too. MaxDepth is additionally enforced by the walker itself
	// through meta.Context.MaxDepth (spec.md §3 invariant b).
	MinDepth int
	MaxDepth int

	Deflate      bool
	DeflateLimit int64

	// Incremental, if set, is consulted as the final exclusion
	// predicate and updated after a fully successful probe run
	// (spec.md §4.3/§4.7).
	Incremental *incremental.Store

	Warn func(format string, args ...any)
	Log  func(format string, args ...any)
}

// Scanner drives one configured scan over one or more roots.
type Scanner struct {
	meta     *meta.Context
	opts     Options
	probes   map[string]probe.Probe
	dispatch []dispatchEntry
}

type dispatchEntry struct {
	pattern string
	names   []string
}

// New builds a Scanner. probes is the set of constructed, named
// probes to dispatch to (spec.md §6's `-p probes` selection already
// applied by the caller); their MIME targets are compiled into a
// pattern→probe-names dispatch table (spec.md §4.7).
func New(metaCtx *meta.Context, opts Options, probes map[string]probe.Probe) *Scanner {
	if opts.MinDepth == 0 {
		opts.MinDepth = -1
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = -1
	}
	s := &Scanner{meta: metaCtx, opts: opts, probes: probes}
	s.dispatch = buildDispatch(probes)
	return s
}

// buildDispatch groups probe names by declared MIME pattern, matching
// spec.md §4.7's "the scanner builds a map {compiled_pattern ->
// [probe_name]}". A probe with no declared target matches every item
// and is grouped under the wildcard pattern "*".
func buildDispatch(probes map[string]probe.Probe) []dispatchEntry {
	byPattern := map[string][]string{}
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic dispatch order

	for _, name := range names {
		p := probes[name]
		targets := p.Targets()
		if len(targets) == 0 {
			targets = []string{"*"}
		}
		for _, pattern := range targets {
			byPattern[pattern] = append(byPattern[pattern], name)
		}
	}

	patterns := make([]string, 0, len(byPattern))
	for pattern := range byPattern {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	entries := make([]dispatchEntry, 0, len(patterns))
	for _, pattern := range patterns {
		entries = append(entries, dispatchEntry{pattern: pattern, names: byPattern[pattern]})
	}
	return entries
}

// matchProbes returns every probe name whose target pattern matches
// mimeType, in dispatch order, deduplicated.
func (s *Scanner) matchProbes(mimeType string) []string {
	seen := map[string]bool{}
	var names []string
	for _, entry := range s.dispatch {
		if entry.pattern != "*" {
			ok, _ := doublestar.Match(entry.pattern, mimeType)
			if !ok {
				continue
			}
		}
		for _, name := range entry.names {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

func (s *Scanner) warn(format string, args ...any) {
	if s.opts.Warn != nil {
		s.opts.Warn(format, args...)
	}
}

func (s *Scanner) log(format string, args ...any) {
	if s.opts.Log != nil {
		s.opts.Log(format, args...)
	}
}

// Scan walks root and dispatches every surviving item to the
// matching probes (spec.md §4.7). It returns nothing: walker, probe
// and cache failures go to the Warn/Log callbacks, and no single bad
// file or probe stops the scan.
func (s *Scanner) Scan(root string) {
	w := meta.Walk(s.meta, root, meta.WalkOptions{
		ExcludeLink: s.opts.ExcludeLink,
		Warn:        s.opts.Warn,
	})
	defer w.Close()

	for {
		item, ok := w.Next()
		if !ok {
			return
		}
		s.visit(item)
	}
}

func (s *Scanner) visit(item *meta.Item) {
	// Directories and archives themselves are traversal nodes, not
	// probeable content (spec.md §3: Archive.readable=false); their
	// members are visited independently.
	if item.Kind == meta.KindDir || !item.Readable {
		return
	}
	if s.opts.MaxDepth >= 0 && item.Depth() > s.opts.MaxDepth {
		return
	}
	if s.opts.MinDepth >= 0 && item.Depth() < s.opts.MinDepth {
		return
	}
	if s.excluded(item) {
		return
	}

	names := s.matchProbes(item.MimeType())
	if len(names) == 0 {
		return
	}

	success := true
	for _, name := range names {
		p, ok := s.probes[name]
		if !ok {
			s.warn("skipped probe %s on %s: not configured", name, item.String())
			continue
		}
		if !p.CanProbe(item) {
			continue
		}
		if err := s.runProbe(p, item); err != nil {
			success = false
		}
	}

	if success && s.opts.Incremental != nil {
		if err := s.opts.Incremental.Add(item); err != nil {
			s.log("failed to update incremental cache for %s: %s", item.String(), err)
		}
	}
}

// runProbe wraps one probe invocation in the try-boundary of spec.md
// §4.7/§7: an unsupported-format error only warns, a corruption error
// is logged and fails the item, anything else is logged but does not
// inhibit the incremental cache.
func (s *Scanner) runProbe(p probe.Probe, item *meta.Item) error {
	err := p.Run(item)
	if err == nil {
		return nil
	}

	var unsupported *meta.ErrUnsupportedFormat
	if errors.As(err, &unsupported) {
		s.warn("probe %s: %s", p.Name(), err)
		return nil
	}

	var corrupt *meta.CorruptionError
	if errors.As(err, &corrupt) {
		s.log("probe %s: %s", p.Name(), err)
		return err
	}

	s.log("probe %s on %s: %s", p.Name(), item.String(), err)
	return nil
}

// excluded runs the ordered, short-circuiting predicate pipeline of
// spec.md §4.7 steps 1-5, ending with the incremental-cache lookup; a
// cache lookup error does not exclude the item.
func (s *Scanner) excluded(item *meta.Item) bool {
	path := item.String()

	for _, pattern := range s.opts.ExcludeName {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	for _, pattern := range s.opts.ExcludeType {
		if ok, _ := doublestar.Match(pattern, item.MimeType()); ok {
			return true
		}
	}
	for _, pattern := range s.opts.ExcludeFS {
		if ok, _ := doublestar.Match(pattern, item.Mount().Type); ok {
			return true
		}
	}
	if len(s.opts.ExcludeRepo) > 0 {
		info := item.Repository()
		if info.Kind != "" {
			for _, rule := range s.opts.ExcludeRepo {
				if rule.Kind != "any" && rule.Kind != string(info.Kind) {
					continue
				}
				if ok, _ := doublestar.Match(rule.Pattern, path); ok {
					return true
				}
			}
		}
	}
	if s.opts.Incremental != nil {
		if in, err := s.opts.Incremental.Contains(item); err == nil && in {
			return true
		}
	}
	return false
}
