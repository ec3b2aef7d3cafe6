// Package config wraps an INI file with the narrow read contract the
// rest of the scanner actually uses (spec.md §1: "the config-file
// parser (only its read contract matters)"), grounded on
// original_source/classified/config.py's Config(ConfigParser)
// subclass.
package config

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
)

// Config is a thin read-only view over an INI file.
type Config struct {
	file *ini.File
}

// Load parses the INI file at path. Indented continuation lines extend
// the previous value (one list item per line, read by GetMulti), and
// '#'/';' inside a value are kept verbatim so GetMulti decides whether
// to strip comments.
func Load(path string) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:        true,
		AllowPythonMultilineValues: true,
	}, path)
	if err != nil {
		return nil, err
	}
	return &Config{file: f}, nil
}

func (c *Config) section(name string) (*ini.Section, bool) {
	if !c.file.HasSection(name) {
		return nil, false
	}
	return c.file.Section(name), true
}

// Get returns section.option, or ok=false if either is missing
// (mirrors ConfigParser.get raising NoSectionError/NoOptionError).
func (c *Config) Get(section, option string) (string, bool) {
	sec, ok := c.section(section)
	if !ok || !sec.HasKey(option) {
		return "", false
	}
	return sec.Key(option).String(), true
}

// GetDefault returns section.option, or def if missing (spec.md
// §4.4/§4.3: used throughout for optional settings with a fallback).
func (c *Config) GetDefault(section, option, def string) string {
	if v, ok := c.Get(section, option); ok {
		return v
	}
	return def
}

// GetInt parses section.option as an integer, or returns (0, false)
// if missing or unparsable.
func (c *Config) GetInt(section, option string) (int, bool) {
	v, ok := c.Get(section, option)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// GetList splits section.option on sep, trimming whitespace from
// each item (spec.md §6: e.g. probe:pan.ignore as hex byte codes).
func (c *Config) GetList(section, option, sep string) ([]string, bool) {
	v, ok := c.Get(section, option)
	if !ok {
		return nil, false
	}
	parts := strings.Split(v, sep)
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out, true
}

var paddingRE = regexp.MustCompile(`(^[\s\t,]+|[\s\t,]+$)`)

// GetMulti splits section.option into lines, stripping trailing
// " #"-style comments and surrounding padding from each (spec.md §6:
// "newline-separated; # line-comments stripped"), matching
// config.py's getmulti exactly.
func (c *Config) GetMulti(section, option string, stripComments bool) ([]string, bool) {
	v, ok := c.Get(section, option)
	if !ok {
		return nil, false
	}

	lines := strings.Split(v, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if stripComments {
			if idx := strings.LastIndex(line, " #"); idx >= 0 {
				line = line[:idx]
			}
		}
		line = paddingRE.ReplaceAllString(line, "")
		out = append(out, line)
	}
	return out, true
}

// Section returns an accessor bound to a single section name, used to
// build a probe.Options.Extra function without threading the section
// name through every call (spec.md §6's `probe:<name>` / `clean:<name>`
// / `report:<name>` sections).
func (c *Config) Section(name string) func(option string) (string, bool) {
	return func(option string) (string, bool) {
		return c.Get(name, option)
	}
}
