// Package pan implements the streaming Primary Account Number (PAN)
// detector of spec.md §4.5: a Luhn mod-10 check over a rolling digit
// buffer, classified against a card-brand prefix/length table.
// Grounded on original_source/classified/probe/pan/__init__.py,
// including its non-obvious digit-rotation-by-slice behaviour after a
// hit (spec.md §9 open question 1).
package pan

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tehmaze/classified/internal/meta"
	"github.com/tehmaze/classified/internal/probe"
)

func init() {
	probe.Register("pan", New)
}

const defaultFormat = "{filename}[{line:d}]: {company} {card_number_masked}"

// defaultIgnore is the literal set of characters that reset or pause
// the digit buffer: NUL, '-', ':', CR, LF (the source's
// `ignore = '\x00-:\r\n'` is plain string containment, not a
// character-range expression).
const defaultIgnore = "\x00-:\r\n"

type brand struct {
	name    string
	lengths []int
	prefix  *regexp.Regexp
}

var brands = []brand{
	{"American Express", []int{15}, regexp.MustCompile(`^3[47]`)},
	{"Diners Club EnRoute", []int{15}, regexp.MustCompile(`^(?:2014|2149)`)},
	{"Diners Club Carte Blanche", []int{14}, regexp.MustCompile(`^30[1-5]`)},
	{"Diners Club International", []int{14}, regexp.MustCompile(`^36`)},
	{"Diners Club America", []int{14}, regexp.MustCompile(`^5[45]`)},
	{"Discover", []int{16}, regexp.MustCompile(`^6011`)},
	{"InstaPayment", []int{16}, regexp.MustCompile(`^63[7-9]`)},
	{"JCB", []int{16}, regexp.MustCompile(`^(?:3088|3096|3112|3158|3337|352[89]|35[3-7][0-9]|358[0-9])`)},
	{"Laser", rangeInts(12, 19), regexp.MustCompile(`^(?:6304|6706|6771|6709)`)},
	{"Maestro", rangeInts(12, 19), regexp.MustCompile(`^(?:5018|5020|5038|5893|6304|6759|676[1-3]|0604)`)},
	{"MasterCard", []int{16}, regexp.MustCompile(`^5[1-5]`)},
	{"VISA", []int{13, 16}, regexp.MustCompile(`^4`)},
}

func rangeInts(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

var bySize = map[int][]brand{}
var minDigits, maxDigits int

func init() {
	first := true
	for _, b := range brands {
		for _, l := range b.lengths {
			bySize[l] = append(bySize[l], b)
			if first || l < minDigits {
				minDigits = l
			}
			if first || l > maxDigits {
				maxDigits = l
			}
			first = false
		}
	}
}

// luhnSumMod10 implements the Luhn mod-10 check sum: every other
// digit counting from the rightmost is doubled, with its own digits
// summed if the double exceeds 9.
func luhnSumMod10(digits []int) int {
	sum := 0
	for i := len(digits) - 1; i >= 0; i -= 2 {
		sum += digits[i]
	}
	for i := len(digits) - 2; i >= 0; i -= 2 {
		d := digits[i] * 2
		sum += d/10 + d%10
	}
	return sum % 10
}

// verify reports whether digits (including its check digit) passes
// the Luhn test.
func verify(digits []int) bool {
	return luhnSumMod10(digits) == 0
}

// generate computes the Luhn check digit to append to digits.
func generate(digits []int) int {
	extended := append(append([]int{}, digits...), 0)
	d := luhnSumMod10(extended)
	if d != 0 {
		d = 10 - d
	}
	return d
}

// mask replaces every digit but the last keep with '*'.
func mask(cardNumber string, keep int) string {
	if keep > len(cardNumber) {
		keep = len(cardNumber)
	}
	n := len(cardNumber) - keep
	return strings.Repeat("*", n) + cardNumber[n:]
}

func matchBrand(cardNumber string) (string, bool) {
	for _, b := range bySize[len(cardNumber)] {
		if b.prefix.MatchString(cardNumber) {
			return b.name, true
		}
	}
	return "", false
}

func digitsToString(digits []int) string {
	var sb strings.Builder
	for _, d := range digits {
		sb.WriteByte(byte('0' + d))
	}
	return sb.String()
}

// PAN scans text-like content for card numbers.
type PAN struct {
	base  probe.Base
	ignore string
	limit int
}

// New constructs a PAN probe, reading probe:pan.limit and
// probe:pan.ignore (hex byte codes) if configured.
func New(opts probe.Options) probe.Probe {
	p := &PAN{
		base:   probe.NewBase("pan", defaultFormat, opts),
		ignore: defaultIgnore,
	}
	if opts.Extra != nil {
		if v, ok := opts.Extra("limit"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				p.limit = n
			}
		}
		if v, ok := opts.Extra("ignore"); ok {
			p.ignore = decodeHexIgnore(v)
		}
	}
	return p
}

func decodeHexIgnore(spec string) string {
	var sb strings.Builder
	for _, field := range strings.Fields(strings.ReplaceAll(spec, ",", " ")) {
		n, err := strconv.ParseInt(field, 16, 32)
		if err != nil {
			continue
		}
		sb.WriteByte(byte(n))
	}
	return sb.String()
}

func (p *PAN) Name() string            { return p.base.Name() }
func (p *PAN) Targets() []string       { return nil }
func (p *PAN) CanProbe(i *meta.Item) bool { return p.base.CanProbe(i) }

func (p *PAN) Run(item *meta.Item) error {
	rc, err := item.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var digits []int
	line := 0
	hits := 0
	prev := byte(0)

	for scanner.Scan() {
		line++
		text := scanner.Text() + "\n"

		for i := 0; i < len(text); i++ {
			c := text[i]
			switch {
			case c >= '0' && c <= '9':
				digits = append(digits, int(c-'0'))
				if len(digits) > maxDigits {
					digits = digits[1:]
				}
				if len(digits) >= minDigits {
					hit, consumed, err := p.tryMatch(item, digits, text, line)
					if err != nil {
						return err
					}
					if consumed > 0 {
						digits = digits[consumed:]
					}
					if hit {
						hits++
						if p.limit > 0 && hits >= p.limit {
							return scanner.Err()
						}
					}
				}

			case strings.IndexByte(p.ignore, c) >= 0:
				if strings.IndexByte(p.ignore, prev) >= 0 {
					digits = nil
				}

			default:
				digits = nil
			}
			prev = c
		}
	}
	return scanner.Err()
}

// tryMatch checks every candidate length against the rolling digit
// buffer and records the first Luhn-valid, brand-matching hit. On a
// hit the digit buffer rotates via a slice (digits[x:]), preserving
// any trailing digits rather than clearing the buffer entirely —
// the source's actual (not the obvious) behaviour (spec.md §9 open
// question 1).
func (p *PAN) tryMatch(item *meta.Item, digits []int, rawLine string, line int) (hit bool, consumed int, err error) {
	for x := minDigits; x <= maxDigits && x <= len(digits); x++ {
		candidate := digits[:x]
		if !verify(candidate) {
			continue
		}
		cardNumber := digitsToString(candidate)
		company, ok := matchBrand(cardNumber)
		if !ok {
			continue
		}

		if err := p.base.Record(item, map[string]string{
			"raw":                rawLine,
			"line":               fmt.Sprintf("%d", line),
			"card_number":        cardNumber,
			"card_number_masked": mask(cardNumber, 4),
			"company":            company,
		}); err != nil {
			return false, 0, err
		}
		return true, x, nil
	}
	return false, 0, nil
}
