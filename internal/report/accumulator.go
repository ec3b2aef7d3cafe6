package report

import (
	"os"
	"strconv"
	"time"

	"github.com/tehmaze/classified/internal/probe"
)

// accumulator is the shared in-memory state of the HTML/TTY/Mail
// sinks: findings grouped by probe name, by filename and by username,
// materialized into a document only at render time (spec.md §4.8:
// "Accumulate findings in-memory grouped by probe name and by
// filename and by username; render() materialises the template once
// at end-of-run"). Grounded on the source's HTMLReport, which every
// other templated sink subclasses.
type accumulator struct {
	Hostname string
	FQDN     string
	Start    time.Time
	Finish   time.Time

	ByProbe    map[string][]probe.Finding
	ByFilename map[string]int
	ByUsername map[string]int
}

func newAccumulator() *accumulator {
	host, _ := os.Hostname()
	return &accumulator{
		Hostname:   host,
		FQDN:       host,
		Start:      time.Now(),
		ByProbe:    make(map[string][]probe.Finding),
		ByFilename: make(map[string]int),
		ByUsername: make(map[string]int),
	}
}

func (a *accumulator) add(f probe.Finding) {
	a.ByProbe[f.Probe] = append(a.ByProbe[f.Probe], f)
	a.ByFilename[f.Filename]++

	username := f.Username
	if username == "" {
		username = strconv.Itoa(f.Uid)
	}
	a.ByUsername[username]++
}

// templateFields renders the subject/sender "{fqdn}"-style templates
// the mail sink uses (spec.md §4.8's "subject.format(**self.entries)").
func (a *accumulator) templateFields() map[string]string {
	user := os.Getenv("USER")
	if user == "" {
		user = "no-reply"
	}
	return map[string]string{
		"fqdn":     a.FQDN,
		"hostname": a.Hostname,
		"user":     user,
	}
}
