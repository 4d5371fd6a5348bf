// Package scheduler runs the pending worklist through a bounded pool of
// comparison workers and serializes every report mutation behind one lock.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tao-codec/coverage/internal/compare"
	"github.com/tao-codec/coverage/internal/exempt"
	"github.com/tao-codec/coverage/internal/metrics"
	"github.com/tao-codec/coverage/internal/model"
	"github.com/tao-codec/coverage/internal/policy"
	"github.com/tao-codec/coverage/internal/report"
)

// StrictThresholdRemark marks a row whose metrics parsed but whose harness
// exited nonzero: the strict threshold assertion failed while the comparison
// itself produced data worth recording.
const StrictThresholdRemark = "严格阈值未通过"

// Comparator abstracts the external comparison invocation so tests can
// substitute a stub for the real subprocess runner.
type Comparator interface {
	Run(ctx context.Context, sample string, timeout time.Duration) compare.Result
}

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ParseLogLevel maps a config string to a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Options carries the per-invocation run parameters.
type Options struct {
	Jobs            int
	Timeout         time.Duration
	Selection       policy.Selection
	FailureKeywords []string
}

// Summary is what one Run accomplished.
type Summary struct {
	Pending   int
	Recorded  int
	Succeeded int
	Failed    int
}

// Scheduler owns the in-memory report for the duration of a run and is its
// only writer. The mutex is held only across mutate+serialize+persist, never
// across a subprocess call.
type Scheduler struct {
	rep      *report.Report
	rules    *exempt.RuleSet
	comp     Comparator
	opts     Options
	logger   *log.Logger
	logLevel LogLevel
	out      io.Writer

	mu sync.Mutex
}

func New(rep *report.Report, rules *exempt.RuleSet, comp Comparator, opts Options, logger *log.Logger, logLevel LogLevel, out io.Writer) *Scheduler {
	return &Scheduler{
		rep:      rep,
		rules:    rules,
		comp:     comp,
		opts:     opts,
		logger:   logger,
		logLevel: logLevel,
		out:      out,
	}
}

// Run applies the hard-skip pre-pass, builds the pending worklist in original
// row order, fans it out to the worker pool, and returns once every submitted
// task has been recorded. Per-sample failures become row outcomes; only
// report persistence errors are fatal.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	if exempt.ApplyHardSkips(s.rep, s.rules) {
		if err := s.rep.Write(); err != nil {
			return Summary{}, fmt.Errorf("persist hard-skip pre-pass: %w", err)
		}
		s.log(LogLevelInfo, "hard_skip_prepass persisted")
	}

	total := s.rep.Len()
	var pending []int
	for idx := 1; idx <= total; idx++ {
		row := s.rep.Row(idx)
		_, hardSkipped := s.rules.HardSkip(idx, row.URL())
		state := policy.RowState{
			Status:      row.Status(),
			Precision:   row.Precision(),
			HardSkipped: hardSkipped,
		}
		if s.opts.Selection.Pending(idx, state) {
			pending = append(pending, idx)
		}
	}

	summary := Summary{Pending: len(pending)}
	if len(pending) == 0 {
		fmt.Fprintln(s.out, "没有需要处理的记录.")
		return summary, nil
	}

	jobs := s.opts.Jobs
	if jobs < 1 {
		jobs = 1
	}
	fmt.Fprintf(s.out, "共 %d 条记录待处理, 并行数: %d, 单样本超时: %ds\n",
		len(pending), jobs, int(s.opts.Timeout/time.Second))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, idx := range pending {
		idx := idx
		g.Go(func() error {
			return s.process(gctx, idx, total, &summary)
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	fmt.Fprintln(s.out, "处理完成.")
	return summary, nil
}

// process runs one sample end to end: compare, parse or classify, apply the
// tolerance post-pass, then record and persist under the report lock.
func (s *Scheduler) process(ctx context.Context, idx, total int, summary *Summary) error {
	row := s.rep.Row(idx)
	url := row.URL()
	fmt.Fprintf(s.out, "开始处理 %d/%d: %s\n", idx, total, url)
	s.log(LogLevelDebug, "compare_start idx=%d sample=%s", idx, url)

	res := s.comp.Run(ctx, url, s.opts.Timeout)
	m, ok := metrics.Parse(res.Output)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok {
		row.SetStatus(model.StatusSuccess)
		row.SetReason("")
		row.SetMetrics(m)
		if res.ExitCode != 0 {
			row.SetRemark(StrictThresholdRemark)
		} else {
			row.SetRemark("")
		}
		exempt.ApplyTolerance(row, s.rules)
		summary.Succeeded++
	} else {
		row.SetStatus(model.StatusFailure)
		row.SetReason(metrics.ClassifyFailure(res.Output, s.opts.FailureKeywords))
		row.ClearMetrics()
		row.SetRemark("")
		summary.Failed++
	}
	summary.Recorded++

	if err := s.rep.Write(); err != nil {
		return fmt.Errorf("record row %d: %w", idx, err)
	}
	fmt.Fprintf(s.out, "已记录 %d/%d: %s\n", idx, total, row.Status())
	s.log(LogLevelInfo, "recorded idx=%d status=%s exit=%d timed_out=%v",
		idx, row.Status(), res.ExitCode, res.TimedOut)
	return nil
}

func (s *Scheduler) log(level LogLevel, format string, args ...any) {
	if s.logger == nil || level < s.logLevel {
		return
	}
	levelStr := "INFO"
	switch level {
	case LogLevelDebug:
		levelStr = "DEBUG"
	case LogLevelWarn:
		levelStr = "WARN"
	case LogLevelError:
		levelStr = "ERROR"
	}
	msg := fmt.Sprintf(format, args...)
	s.logger.Printf("%s %s scheduler: %s", time.Now().Format(time.RFC3339), levelStr, msg)
}
