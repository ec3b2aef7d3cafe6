//go:build windows

package report

import "fmt"

func init() {
	Register("syslog", newSyslogSink)
}

func newSyslogSink(Options) (Sink, error) {
	return nil, fmt.Errorf("report: syslog sink is not supported on windows")
}
