//go:build !windows

package report

import (
	"fmt"
	"log/syslog"

	"github.com/tehmaze/classified/internal/probe"
)

func init() {
	Register("syslog", newSyslogSink)
}

var syslogFacilities = map[string]syslog.Priority{
	"kern": syslog.LOG_KERN, "user": syslog.LOG_USER, "mail": syslog.LOG_MAIL,
	"daemon": syslog.LOG_DAEMON, "auth": syslog.LOG_AUTH, "syslog": syslog.LOG_SYSLOG,
	"lpr": syslog.LOG_LPR, "news": syslog.LOG_NEWS, "uucp": syslog.LOG_UUCP,
	"cron": syslog.LOG_CRON, "authpriv": syslog.LOG_AUTHPRIV, "ftp": syslog.LOG_FTP,
	"local0": syslog.LOG_LOCAL0, "local1": syslog.LOG_LOCAL1, "local2": syslog.LOG_LOCAL2,
	"local3": syslog.LOG_LOCAL3, "local4": syslog.LOG_LOCAL4, "local5": syslog.LOG_LOCAL5,
	"local6": syslog.LOG_LOCAL6, "local7": syslog.LOG_LOCAL7,
}

// syslogSink emits immediately and has no render step (spec.md §4.8),
// matching the source's SyslogReport.
type syslogSink struct {
	writer  *syslog.Writer
	formats map[string]string
}

func newSyslogSink(opts Options) (Sink, error) {
	facility := opts.SyslogFacility
	if facility == "" {
		facility = "daemon"
	}
	priority, ok := syslogFacilities[facility]
	if !ok {
		return nil, fmt.Errorf("report: unknown syslog facility %q", facility)
	}

	w, err := syslog.New(priority|syslog.LOG_INFO, "classified")
	if err != nil {
		return nil, err
	}
	return &syslogSink{writer: w, formats: opts.Formats}, nil
}

func (s *syslogSink) Report(f probe.Finding) error {
	tpl, ok := s.formats[f.Probe]
	if !ok {
		return fmt.Errorf("report: no format_%s configured", f.Probe)
	}
	return s.writer.Info(probe.RenderFormat(tpl, f.AllFields()))
}

func (s *syslogSink) Render() error { return nil }
