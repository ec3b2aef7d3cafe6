package report

import (
	"fmt"
	"log"
	"os"

	"github.com/tehmaze/classified/internal/probe"
)

func init() {
	Register("file", newFileSink)
}

// fileSink writes one formatted line per finding, stateless between
// findings (spec.md §4.8: "Syslog / File. Stateless per finding;
// immediately format via format_<probe> and emit. render() is a
// no-op."). Grounded on the teacher's NewReportWriter, which opens
// "-" as stdout and otherwise creates the output file directly.
type fileSink struct {
	logger  *log.Logger
	formats map[string]string
}

func newFileSink(opts Options) (Sink, error) {
	if opts.Output == "" {
		return nil, fmt.Errorf("report: file sink requires --output")
	}

	var out *os.File
	if opts.Output == "-" {
		out = os.Stdout
	} else {
		f, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		out = f
	}

	return &fileSink{
		logger:  log.New(out, "", log.LstdFlags),
		formats: opts.Formats,
	}, nil
}

func (s *fileSink) Report(f probe.Finding) error {
	tpl, ok := s.formats[f.Probe]
	if !ok {
		return fmt.Errorf("report: no format_%s configured", f.Probe)
	}
	s.logger.Println(probe.RenderFormat(tpl, f.AllFields()))
	return nil
}

func (s *fileSink) Render() error { return nil }
