package probe

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/tehmaze/classified/internal/meta"
)

// RepoIgnoreRule suppresses findings under paths owned by a given SCM
// kind ("any" matches regardless of detected kind), matching spec.md
// §4.4's "(repo_kind, fnmatch-pattern)" list.
type RepoIgnoreRule struct {
	Kind    string
	Pattern string
}

// Ignore is one probe's suppression configuration, loaded once and
// shared across every item it probes (spec.md §4.4: "per-probe
// ignores are loaded exactly once, process-wide memoised").
type Ignore struct {
	Name []string // fnmatch-style glob patterns on the stringified path
	Hash []string // literal digest strings
	Repo []RepoIgnoreRule
}

// MatchesName reports whether path matches any configured name-ignore
// glob.
func (i *Ignore) MatchesName(path string) bool {
	for _, pattern := range i.Name {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// MatchesHash reports whether digest is in the configured ignore-hash
// list.
func (i *Ignore) MatchesHash(digest string) bool {
	for _, h := range i.Hash {
		if h == digest {
			return true
		}
	}
	return false
}

// MatchesRepo reports whether item's owning repository kind and path
// match a configured repo-ignore rule.
func (i *Ignore) MatchesRepo(item *meta.Item) bool {
	info := item.Repository()
	if info.Kind == "" {
		return false
	}
	for _, rule := range i.Repo {
		if rule.Kind != "any" && rule.Kind != string(info.Kind) {
			continue
		}
		if ok, _ := doublestar.Match(rule.Pattern, item.String()); ok {
			return true
		}
	}
	return false
}
