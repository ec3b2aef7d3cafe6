package probe

import (
	"regexp"
)

// formatToken matches a Python str.format-style placeholder such as
// {filename} or {line:d}; the format-spec after ':' is accepted but
// ignored since every field is already rendered as a string by the
// time it reaches here.
var formatToken = regexp.MustCompile(`\{(\w+)(:[^}]*)?\}`)

// renderFormat substitutes fields into tpl, matching the source's
// `format.format(**kwargs)` call used for the "format" hash context
// and for a probe's own report line (spec.md §4.4/§4.8). A token with
// no matching field renders as an empty string rather than erroring,
// since suppression digests must still be computable from partial
// field sets.
// RenderFormat is the exported form of renderFormat, used by report
// sinks to render a probe's own `format_<probe>` line template
// (spec.md §4.8) with the same substitution rules as the
// suppression-digest "format" context.
func RenderFormat(tpl string, fields map[string]string) string {
	return renderFormat(tpl, fields)
}

func renderFormat(tpl string, fields map[string]string) string {
	return formatToken.ReplaceAllStringFunc(tpl, func(token string) string {
		m := formatToken.FindStringSubmatch(token)
		if m == nil {
			return token
		}
		if v, ok := fields[m[1]]; ok {
			return v
		}
		return ""
	})
}
