package report

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"text/template"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tehmaze/classified/internal/probe"
)

func init() {
	Register("tty", newTTYSink)
}

var (
	ttyBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 1)
	ttyHeadingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	ttyCountStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// ttySink reuses the HTML sink's accumulate-then-render shape (spec.md
// §4.8 groups TTY with HTML/Mail) but prints a styled terminal summary
// instead of a templated document when no template is configured;
// with a template it renders plain text and frames it for the
// terminal.
type ttySink struct {
	acc      *accumulator
	template *template.Template
}

func newTTYSink(opts Options) (Sink, error) {
	s := &ttySink{acc: newAccumulator()}
	if opts.Template != "" {
		tpl, err := template.ParseFiles(opts.Template)
		if err != nil {
			return nil, err
		}
		s.template = tpl
	}
	return s, nil
}

func (s *ttySink) Report(f probe.Finding) error {
	s.acc.add(f)
	return nil
}

func (s *ttySink) Render() error {
	s.acc.Finish = time.Now()

	var body string
	if s.template != nil {
		var buf bytes.Buffer
		if err := s.template.Execute(&buf, s.acc); err != nil {
			return err
		}
		body = buf.String()
	} else {
		body = s.defaultSummary()
	}

	fmt.Fprintln(os.Stdout, ttyBorderStyle.Render(body))
	return nil
}

func (s *ttySink) defaultSummary() string {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, ttyHeadingStyle.Render(fmt.Sprintf("classified report for %s", s.acc.FQDN)))
	fmt.Fprintln(&buf, ttyCountStyle.Render(fmt.Sprintf("%s — %s", s.acc.Start.Format(time.RFC3339), s.acc.Finish.Format(time.RFC3339))))
	fmt.Fprintln(&buf)

	names := make([]string, 0, len(s.acc.ByProbe))
	for name := range s.acc.ByProbe {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		findings := s.acc.ByProbe[name]
		fmt.Fprintln(&buf, ttyHeadingStyle.Render(fmt.Sprintf("%s (%d)", name, len(findings))))
		for _, f := range findings {
			fmt.Fprintf(&buf, "  %s\n", f.Filename)
		}
	}
	return buf.String()
}
