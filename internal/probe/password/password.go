// Package password implements the plaintext-password heuristic probe
// of spec.md §4.6: a `pgpass`-file-specific column parser plus a
// generic "pass/passwd/password = ..." regex scan, grounded on
// original_source/classified/probe/password/__init__.py.
package password

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tehmaze/classified/internal/meta"
	"github.com/tehmaze/classified/internal/probe"
)

func init() {
	probe.Register("password", New)
}

const defaultFormat = "{filename_relative}[{line}]: {type} {text_masked}"
const defaultPattern = `\bpass(?:|wd|word)\b[ \s\t=:]+(?P<password>.*)`

// Password scans text-like content for plaintext passwords.
type Password struct {
	base    probe.Base
	pattern *regexp.Regexp
}

// New constructs a Password probe, reading probe:password.pattern if
// configured.
func New(opts probe.Options) probe.Probe {
	pattern := defaultPattern
	if opts.Extra != nil {
		if v, ok := opts.Extra("pattern"); ok && v != "" {
			pattern = v
		}
	}
	return &Password{
		base:    probe.NewBase("password", defaultFormat, opts),
		pattern: regexp.MustCompile(pattern),
	}
}

func (p *Password) Name() string            { return p.base.Name() }
func (p *Password) Targets() []string       { return nil }
func (p *Password) CanProbe(i *meta.Item) bool { return p.base.CanProbe(i) }

func (p *Password) Run(item *meta.Item) error {
	rc, err := item.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	basename := filepath.Base(item.String())
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	isPgpass := strings.Contains(basename, "pgpass")
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()

		if isPgpass {
			if err := p.probePgpass(item, text, line); err != nil {
				return err
			}
		}
		if err := p.probeHeuristic(item, text, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// probePgpass reports a pgpass line's password column (colon-
// separated hostname:port:database:username:password).
func (p *Password) probePgpass(item *meta.Item, text string, line int) error {
	part := strings.Split(text, ":")
	if len(part) != 5 || part[4] == "" {
		return nil
	}
	masked := strings.Join(append(append([]string{}, part[:4]...), "********"), ":")
	return p.base.Record(item, map[string]string{
		"raw":             text,
		"type":            "pgpass",
		"line":            fmt.Sprintf("%d", line),
		"text":            text,
		"text_masked":     masked,
		"password":        part[4],
		"password_masked": "********",
	})
}

func (p *Password) probeHeuristic(item *meta.Item, text string, line int) error {
	for _, m := range p.pattern.FindAllStringSubmatch(text, -1) {
		password := m[len(m)-1]
		if password == "" {
			continue
		}
		if err := p.base.Record(item, map[string]string{
			"raw":             text,
			"type":            "password",
			"line":            fmt.Sprintf("%d", line),
			"text":            text,
			"text_masked":     strings.Replace(text, password, "********", 1),
			"password":        password,
			"password_masked": "********",
		}); err != nil {
			return err
		}
	}
	return nil
}
