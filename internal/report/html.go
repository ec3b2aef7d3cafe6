package report

import (
	"fmt"
	"os"
	"text/template"
	"time"

	"github.com/tehmaze/classified/internal/probe"
)

func init() {
	Register("html", newHTMLSink)
}

// htmlSink accumulates findings and materializes them through a
// user-supplied template once at end-of-run (spec.md §4.8). Uses
// text/template rather than html/template: the template is operator-
// supplied configuration, not untrusted input, and the source's own
// Jinja2 templates perform no HTML-escaping of their own either.
type htmlSink struct {
	acc      *accumulator
	template *template.Template
	output   string
}

func newHTMLSink(opts Options) (Sink, error) {
	if opts.Output == "" {
		return nil, fmt.Errorf("report: html sink requires --output")
	}
	if opts.Template == "" {
		return nil, fmt.Errorf("report: html sink requires a template")
	}
	tpl, err := template.ParseFiles(opts.Template)
	if err != nil {
		return nil, err
	}
	return &htmlSink{acc: newAccumulator(), template: tpl, output: opts.Output}, nil
}

func (s *htmlSink) Report(f probe.Finding) error {
	s.acc.add(f)
	return nil
}

func (s *htmlSink) Render() error {
	var out *os.File
	if s.output == "-" {
		out = os.Stdout
	} else {
		f, err := os.Create(s.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	s.acc.Finish = time.Now()
	return s.template.Execute(out, s.acc)
}
