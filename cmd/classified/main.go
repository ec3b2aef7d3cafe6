// Command classified walks a filesystem subtree and reports
// classified-data findings (PANs, passwords, private keys, packet
// captures). The CLI/flag layer is explicitly out of scope for the
// core per spec.md §1; this file is a thin adapter that builds a
// scanner.Scanner from flags/config and runs it, mirroring spec.md
// §6's inferred `classified [-p probes] [--report-format fmt]
// [--output target] paths...` surface.
package main

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tehmaze/classified/internal/config"
	"github.com/tehmaze/classified/internal/incremental"
	"github.com/tehmaze/classified/internal/meta"
	"github.com/tehmaze/classified/internal/probe"
	"github.com/tehmaze/classified/internal/report"
	"github.com/tehmaze/classified/internal/scanner"

	_ "github.com/tehmaze/classified/internal/probe/pan"
	_ "github.com/tehmaze/classified/internal/probe/password"
	_ "github.com/tehmaze/classified/internal/probe/pcap"
	_ "github.com/tehmaze/classified/internal/probe/sslkey"
)

var (
	flagConfig       string
	flagProbes       string
	flagReportFormat string
	flagOutput       string
)

func main() {
	root := &cobra.Command{
		Use:          "classified [paths...]",
		Short:        "scan a filesystem subtree for classified data",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
	root.Flags().StringVar(&flagConfig, "config", "", "path to an INI configuration file")
	root.Flags().StringVarP(&flagProbes, "probes", "p", "all", "comma-separated probe names, or \"all\"")
	root.Flags().StringVar(&flagReportFormat, "report-format", "tty", "report sink: file, syslog, html, mail, tty")
	root.Flags().StringVar(&flagOutput, "output", "-", "sink destination (path, \"-\" for stdout, or recipients for mail)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stderr, "classified: ", log.LstdFlags)

	var cfg *config.Config
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			// Configuration error at startup: spec.md §7's
			// "Configuration" kind is fatal.
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	sink, err := buildSink(cfg)
	if err != nil {
		// spec.md §7's "Setup" kind: missing --output for a sink
		// that needs it.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	probes := buildProbes(cfg, sink)

	metaCtx, opts := buildScannerContext(cfg, logger)

	s := scanner.New(metaCtx, opts, probes)
	for _, path := range args {
		s.Scan(path)
	}

	if err := sink.Render(); err != nil {
		logger.Printf("rendering report: %s", err)
	}
	return nil
}

func buildSink(cfg *config.Config) (report.Sink, error) {
	section := "report:" + flagReportFormat
	opts := report.Options{Output: flagOutput}

	if cfg != nil {
		if flagOutput == "-" {
			if v := cfg.GetDefault(section, "output", ""); v != "" {
				opts.Output = v
			}
		}
		opts.Template = cfg.GetDefault(section, "template", "")
		opts.SyslogFacility = cfg.GetDefault(section, "facility", "daemon")
		opts.Sender = cfg.GetDefault(section, "sender", "")
		opts.Subject = cfg.GetDefault(section, "subject", "")
		opts.Server = cfg.GetDefault(section, "server", "")

		opts.Formats = map[string]string{}
		for _, name := range probeNames() {
			if v, ok := cfg.Get(section, "format_"+name); ok {
				opts.Formats[name] = v
			}
		}
	}

	return report.New(flagReportFormat, opts)
}

// sinkReporter adapts a report.Sink (error-returning) to
// probe.Reporter (fire-and-forget from the probe's point of view;
// delivery failures are the sink's own concern to log, matching
// spec.md §7's "Transport... logged; not retried" for mail).
type sinkReporter struct {
	sink   report.Sink
	logger *log.Logger
}

func (r sinkReporter) Report(f probe.Finding) {
	if err := r.sink.Report(f); err != nil {
		r.logger.Printf("probe %s: reporting finding for %s: %s", f.Probe, f.Filename, err)
	}
}

func probeNames() []string {
	if flagProbes == "all" || flagProbes == "" {
		names := probe.Names()
		sort.Strings(names)
		return names
	}
	parts := strings.Split(flagProbes, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

func buildProbes(cfg *config.Config, sink report.Sink) map[string]probe.Probe {
	reporter := sinkReporter{sink: sink, logger: log.New(os.Stderr, "classified: ", log.LstdFlags)}

	baseAlgorithm := "sha1"
	baseContext := "line"
	if cfg != nil {
		baseAlgorithm = cfg.GetDefault("clean", "algorithm", baseAlgorithm)
		baseContext = cfg.GetDefault("clean", "context", baseContext)
	}

	probes := map[string]probe.Probe{}
	for _, name := range probeNames() {
		section := "clean:" + name
		opts := probe.Options{
			Reporter:    reporter,
			Algorithm:   baseAlgorithm,
			HashContext: baseContext,
		}
		if cfg != nil {
			opts.Algorithm = cfg.GetDefault(section, "algorithm", opts.Algorithm)
			opts.HashContext = cfg.GetDefault(section, "context", opts.HashContext)
			opts.Format = cfg.GetDefault(section, "format", "")
			opts.Ignore = buildIgnore(cfg, section)
			opts.Extra = cfg.Section("probe:" + name)
		}

		p, err := probe.New(name, opts)
		if err != nil {
			// spec.md §7's "NotImplemented" kind: unknown probe name
			// warns and the scanner continues without it.
			fmt.Fprintf(os.Stderr, "classified: skipping unknown probe %q: %s\n", name, err)
			continue
		}
		probes[name] = p
	}
	return probes
}

func buildIgnore(cfg *config.Config, section string) *probe.Ignore {
	ignore := &probe.Ignore{}
	if names, ok := cfg.GetMulti(section, "ignore_name", true); ok {
		ignore.Name = names
	}
	if hashes, ok := cfg.GetMulti(section, "ignore_hash", true); ok {
		ignore.Hash = hashes
	}
	if rules, ok := cfg.GetMulti(section, "ignore_repo", true); ok {
		for _, rule := range rules {
			kind, pattern, found := strings.Cut(rule, ":")
			if !found {
				continue
			}
			ignore.Repo = append(ignore.Repo, probe.RepoIgnoreRule{Kind: kind, Pattern: pattern})
		}
	}
	return ignore
}

func buildScannerContext(cfg *config.Config, logger *log.Logger) (*meta.Context, scanner.Options) {
	metaCtx := meta.NewContext()
	opts := scanner.Options{
		MinDepth: -1,
		MaxDepth: -1,
		Warn:     func(format string, args ...any) { logger.Printf(format, args...) },
		Log:      func(format string, args ...any) { logger.Printf(format, args...) },
	}

	if cfg == nil {
		return metaCtx, opts
	}

	metaCtx.Deflate = cfg.GetDefault("scanner", "deflate", "true") != "false"
	if n, ok := cfg.GetInt("scanner", "deflate_limit"); ok {
		metaCtx.DeflateLimit = int64(n)
	}
	if n, ok := cfg.GetInt("scanner", "maxdepth"); ok {
		metaCtx.MaxDepth = n
		opts.MaxDepth = n
	}
	if n, ok := cfg.GetInt("scanner", "mindepth"); ok {
		opts.MinDepth = n
	}
	opts.ExcludeLink = cfg.GetDefault("scanner", "exclude_link", "false") == "true"

	if names, ok := cfg.GetMulti("scanner", "exclude_name", true); ok {
		opts.ExcludeName = names
	}
	if types, ok := cfg.GetMulti("scanner", "exclude_type", true); ok {
		opts.ExcludeType = types
	}
	if fss, ok := cfg.GetMulti("scanner", "exclude_fs", true); ok {
		opts.ExcludeFS = fss
	}
	if rules, ok := cfg.GetMulti("scanner", "exclude_repo", true); ok {
		for _, rule := range rules {
			kind, pattern, found := strings.Cut(rule, ":")
			if !found {
				continue
			}
			opts.ExcludeRepo = append(opts.ExcludeRepo, scanner.RepoExclude{Kind: kind, Pattern: pattern})
		}
	}

	if cfg.GetDefault("scanner", "incremental", "false") == "true" {
		database := cfg.GetDefault("incremental", "database", "")
		algorithm := cfg.GetDefault("incremental", "algorithm", incremental.DefaultAlgorithm)
		blockSize := incremental.DefaultBlockSize
		if n, ok := cfg.GetInt("incremental", "blocksize"); ok {
			blockSize = n
		}
		if database != "" {
			store, err := incremental.Open(database, algorithm, blockSize)
			if err != nil {
				logger.Printf("opening incremental store %s: %s", database, err)
			} else {
				opts.Incremental = store
			}
		}
	}

	return metaCtx, opts
}
