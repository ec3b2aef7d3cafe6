// Package report implements the pluggable sinks of spec.md §4.8: file,
// syslog, HTML, mail and TTY, each receiving findings via Report and
// materializing its output via Render. The templating engine, SMTP
// delivery and syslog integration are external collaborators per
// spec.md §1's scope note; this package only defines the contract
// and the state machines around them.
package report

import (
	"fmt"

	"github.com/tehmaze/classified/internal/probe"
)

// Sink is the operation set every report implements, matching the
// source's Report.report/Report.render (spec.md §4.8: "All sinks
// implement report(probe, item, fields) and render()").
type Sink interface {
	Report(probe.Finding) error
	Render() error
}

// Options carries what a sink needs to configure itself, kept
// collaborator-agnostic so this package doesn't import the config or
// template packages directly.
type Options struct {
	// Output is the sink's destination: a file path ("-" for
	// stdout), or a comma-separated recipient list for mail.
	Output string
	// Formats maps a probe name to its `format_<probe>` line
	// template (syslog/file sinks).
	Formats map[string]string
	// Template is the path to the HTML/TTY template file.
	Template string
	// SyslogFacility names the syslog facility (e.g. "daemon").
	SyslogFacility string
	// Sender/Subject are the mail sink's From/Subject templates.
	Sender  string
	Subject string
	// Server is the mail sink's SMTP server address.
	Server string
}

// Factory constructs a configured Sink.
type Factory func(Options) (Sink, error)

var registry = map[string]Factory{}

// Register adds a sink factory under name.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New constructs the named sink (spec.md §7's "Setup" error kind:
// "missing --output for a sink that needs it").
func New(name string, opts Options) (Sink, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("report: unknown sink %q", name)
	}
	return factory(opts)
}

// Names returns every registered sink name.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
