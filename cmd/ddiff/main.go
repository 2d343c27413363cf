package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/treeline-tools/ddiff/pkg/buildinfo"
	"github.com/treeline-tools/ddiff/pkg/config"
	"github.com/treeline-tools/ddiff/pkg/dlog"
	"github.com/treeline-tools/ddiff/pkg/exttool"
	"github.com/treeline-tools/ddiff/pkg/lscolors"
	"github.com/treeline-tools/ddiff/pkg/metrics"
	"github.com/treeline-tools/ddiff/pkg/session"
)

// init sets up a custom help message for the command-line flags.
func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [options] LEFT RIGHT (version %s)\n", buildinfo.Name, buildinfo.Version)
		fmt.Fprintf(flag.CommandLine.Output(), "Interactively compare two directory trees.\n\n")
		flag.PrintDefaults()
	}
}

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// parseFlagConfig loads the optional config file and overlays the flags
// that were explicitly set, then fills the roots from the positional
// arguments.
func parseFlagConfig() (config.Config, bool, error) {
	editorFlag := flag.String("editor", "", "Program used to diff two files.")
	threadsFlag := flag.Int("threads", 0, "Number of diff threads.")
	logLevelFlag := flag.String("log-level", "", "Set the logging level: 'debug', 'info', 'warn', 'error'.")
	configFlag := flag.String("config", "", "Path to an alternate config file.")
	metricsFlag := flag.Bool("metrics", false, "Log cache and hashing counters on exit.")
	versionFlag := flag.Bool("version", false, "Print the application version and exit.")
	var excludeFlag listFlag
	flag.Var(&excludeFlag, "exclude", "Ignore files matching this regex. May be repeated.")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("%s version %s\n", buildinfo.Name, buildinfo.Version)
		return config.Config{}, false, flag.ErrHelp
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		return config.Config{}, false, err
	}

	usedFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { usedFlags[f.Name] = true })
	if usedFlags["editor"] {
		cfg.Editor = *editorFlag
	}
	if usedFlags["threads"] {
		cfg.Workers = *threadsFlag
	}
	if usedFlags["log-level"] {
		cfg.LogLevel = *logLevelFlag
	}
	if usedFlags["exclude"] {
		cfg.Excludes = append(cfg.Excludes, excludeFlag...)
	}

	if flag.NArg() != 2 {
		flag.Usage()
		return config.Config{}, false, fmt.Errorf("expected exactly two positional arguments, got %d", flag.NArg())
	}
	cfg.Left = flag.Arg(0)
	cfg.Right = flag.Arg(1)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, false, err
	}
	return cfg, *metricsFlag, nil
}

func run(ctx context.Context) error {
	cfg, logMetrics, err := parseFlagConfig()
	if err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	dlog.SetLevel(cfg.LogLevel)
	dlog.Info("starting "+buildinfo.Name, "version", buildinfo.Version, "pid", os.Getpid(),
		"left", cfg.Left, "right", cfg.Right)

	excludes, err := cfg.ExcludePatterns()
	if err != nil {
		return err
	}

	rec := &metrics.DiffMetrics{}
	sess, err := session.New(cfg.Left, cfg.Right, session.Options{
		Workers:  cfg.Workers,
		Exclude:  excludes,
		Recorder: rec,
	})
	if err != nil {
		return err
	}
	defer sess.Close()
	if logMetrics {
		defer rec.Log()
	}

	ui := newUI(sess, cfg, lscolors.Parse(os.Getenv("LS_COLORS")), exttool.NewLauncher(nil))
	return ui.run(ctx)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx); err != nil {
		dlog.Error(buildinfo.Name+" exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", buildinfo.Name, err)
		os.Exit(1)
	}
}
