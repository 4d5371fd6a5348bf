// Command coverage runs the decoder sample regression matrix: it compares
// samples against the reference decoder via the profile's comparison harness
// and records outcomes into the coverage report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tao-codec/coverage/internal/compare"
	"github.com/tao-codec/coverage/internal/config"
	"github.com/tao-codec/coverage/internal/lock"
	"github.com/tao-codec/coverage/internal/policy"
	"github.com/tao-codec/coverage/internal/report"
	"github.com/tao-codec/coverage/internal/scheduler"
	"github.com/tao-codec/coverage/internal/status"
	"github.com/tao-codec/coverage/internal/watch"
)

const version = "1.2.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runRun(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "version":
		fmt.Printf("coverage %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`usage: coverage <command> [options]

commands:
  run      test pending samples and record outcomes into the report
  status   summarize the report (row counts per status)
  watch    follow the report and print a summary line per recorded row
  version  print version

run options:
  -config PATH        configuration file (default: coverage.yaml)
  -report PATH        override the profile's report path
  -retest-all         retest every record
  -retest-failed      retest records whose status is 失败
  -retest-imprecise   retest failed, untested, and below-100% records
  -index N            retest only row N (repeatable)
  -jobs N             parallel workers (default: config, then host CPUs)
  -timeout SEC        per-sample timeout in seconds (default: config)
  -include-skipped    include samples excluded by skip rules`)
}

// indexFlag collects repeated -index values.
type indexFlag []int

func (f *indexFlag) String() string {
	parts := make([]string, len(*f))
	for i, v := range *f {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (f *indexFlag) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return fmt.Errorf("index must be a positive integer, got %q", s)
	}
	*f = append(*f, v)
	return nil
}

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "coverage.yaml", "configuration file")
	reportPath := fs.String("report", "", "override the profile's report path")
	retestAll := fs.Bool("retest-all", false, "retest every record")
	retestFailed := fs.Bool("retest-failed", false, "retest failed records")
	retestImprecise := fs.Bool("retest-imprecise", false, "retest imprecise records (including failures)")
	jobs := fs.Int("jobs", 0, "parallel workers")
	timeoutSec := fs.Int("timeout", 0, "per-sample timeout seconds")
	includeSkipped := fs.Bool("include-skipped", false, "include samples excluded by skip rules")
	var indexes indexFlag
	fs.Var(&indexes, "index", "retest only this row index (repeatable)")
	_ = fs.Parse(args)

	mode, err := selectMode(*retestAll, *retestFailed, *retestImprecise)
	if err != nil {
		fatal(err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *jobs > 0 {
		cfg.Run.Jobs = *jobs
	}
	if *timeoutSec > 0 {
		cfg.Run.TimeoutSec = *timeoutSec
	}
	rp := cfg.Profile.ReportPath
	if *reportPath != "" {
		rp = *reportPath
	}

	runLock := lock.ForReport(rp)
	if err := runLock.Acquire(); err != nil {
		fatal(err)
	}
	defer func() { _ = runLock.Release() }()

	rep, err := report.Load(rp)
	if err != nil {
		fatal(err)
	}
	if err := rep.RequireColumns(report.RequiredColumns...); err != nil {
		fatal(err)
	}

	sched := scheduler.New(
		rep,
		cfg.RuleSet(),
		compare.NewRunner(cfg.Profile.InputEnv, cfg.Profile.Command),
		scheduler.Options{
			Jobs:    cfg.Run.Jobs,
			Timeout: time.Duration(cfg.Run.TimeoutSec) * time.Second,
			Selection: policy.Selection{
				Mode:           mode,
				Indexes:        indexes,
				IncludeSkipped: *includeSkipped,
			},
			FailureKeywords: cfg.Profile.FailureKeywords,
		},
		log.New(os.Stderr, "", 0),
		scheduler.ParseLogLevel(cfg.Logging.Level),
		os.Stdout,
	)

	summary, err := sched.Run(context.Background())
	if err != nil {
		fatal(err)
	}
	if summary.Recorded > 0 {
		fmt.Printf("本次记录 %d 条: 成功 %d, 失败 %d\n",
			summary.Recorded, summary.Succeeded, summary.Failed)
	}
}

func selectMode(all, failed, imprecise bool) (policy.Mode, error) {
	count := 0
	mode := policy.ModeResume
	if all {
		count++
		mode = policy.ModeRetestAll
	}
	if failed {
		count++
		mode = policy.ModeRetestFailed
	}
	if imprecise {
		count++
		mode = policy.ModeRetestImprecise
	}
	if count > 1 {
		return 0, fmt.Errorf("-retest-all, -retest-failed and -retest-imprecise are mutually exclusive")
	}
	return mode, nil
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "coverage.yaml", "configuration file")
	reportPath := fs.String("report", "", "report path (skips config lookup)")
	jsonOutput := fs.Bool("json", false, "JSON output")
	_ = fs.Parse(args)

	rp, err := resolveReport(*configPath, *reportPath)
	if err != nil {
		fatal(err)
	}
	if err := status.Run(rp, *jsonOutput, os.Stdout); err != nil {
		fatal(err)
	}
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "coverage.yaml", "configuration file")
	reportPath := fs.String("report", "", "report path (skips config lookup)")
	_ = fs.Parse(args)

	rp, err := resolveReport(*configPath, *reportPath)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := watch.New(rp, os.Stdout).Run(ctx); err != nil {
		fatal(err)
	}
}

func resolveReport(configPath, reportPath string) (string, error) {
	if reportPath != "" {
		return reportPath, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	return cfg.Profile.ReportPath, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "coverage: %v\n", err)
	os.Exit(1)
}
