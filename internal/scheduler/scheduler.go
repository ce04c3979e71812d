package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"sentinel-signals/internal/analyzer"
	"sentinel-signals/internal/collector"
	"sentinel-signals/internal/model"
	"sentinel-signals/internal/notifier"
	"sentinel-signals/internal/strategy"
)

// Scheduler runs analysis cycles over every symbol and timeframe.
type Scheduler struct {
	Cron        *cron.Cron
	Collector   *collector.Collector
	Analyzer    *analyzer.Analyzer
	Notifier    notifier.Notifier
	Params      strategy.Params
	Symbols     []string
	Timeframes  []string
	Concurrency int
	Log         logrus.FieldLogger
}

// CycleResult summarizes one analysis cycle.
type CycleResult struct {
	RunID   string
	Units   int
	Signals int
	Skipped int
	Failed  int
}

type unitOutcome int

const (
	unitSignal unitOutcome = iota
	unitSkipped
	unitFailed
)

// NewScheduler creates a new Scheduler. Overlapping cron cycles are skipped.
func NewScheduler(col *collector.Collector, an *analyzer.Analyzer, n notifier.Notifier, params strategy.Params,
	symbols, timeframes []string, concurrency int, log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if n == nil {
		n = notifier.Multi{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.PrintfLogger(log)), cron.SkipIfStillRunning(cron.PrintfLogger(log))),
		),
		Collector:   col,
		Analyzer:    an,
		Notifier:    n,
		Params:      params,
		Symbols:     symbols,
		Timeframes:  timeframes,
		Concurrency: concurrency,
		Log:         log,
	}
}

// Register schedules the analysis cycle on spec. Cycles run under ctx.
func (s *Scheduler) Register(ctx context.Context, spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.RunCycle(ctx) }); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// RunCycle analyzes every (symbol, timeframe) unit with bounded parallelism.
// A failing unit is logged and never affects the others.
func (s *Scheduler) RunCycle(ctx context.Context) CycleResult {
	res := CycleResult{RunID: uuid.NewString()}
	log := s.Log.WithField("run_id", res.RunID)
	log.WithFields(logrus.Fields{"symbols": len(s.Symbols), "timeframes": len(s.Timeframes)}).Info("analysis cycle started")

	var signals, skipped, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for _, symbol := range s.Symbols {
		for _, tf := range s.Timeframes {
			res.Units++
			g.Go(func() error {
				switch s.runUnit(gctx, log.WithFields(logrus.Fields{"symbol": symbol, "timeframe": tf}), symbol, tf) {
				case unitSignal:
					signals.Add(1)
				case unitSkipped:
					skipped.Add(1)
				default:
					failed.Add(1)
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	res.Signals, res.Skipped, res.Failed = int(signals.Load()), int(skipped.Load()), int(failed.Load())
	log.WithFields(logrus.Fields{
		"units": res.Units, "signals": res.Signals, "skipped": res.Skipped, "failed": res.Failed,
	}).Info("analysis cycle finished")
	return res
}

func (s *Scheduler) runUnit(ctx context.Context, log logrus.FieldLogger, symbol, tf string) (outcome unitOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("analysis unit panicked")
			outcome = unitFailed
		}
	}()

	report, sig, err := s.Evaluate(ctx, symbol, tf)
	if err != nil {
		log.WithError(err).Error("analysis unit failed")
		return unitFailed
	}
	if sig == nil {
		log.Info(report)
		return unitSkipped
	}
	log = log.WithFields(logrus.Fields{"direction": sig.Direction, "score": sig.Score, "stars": sig.Strength.Stars})
	if err := s.Notifier.Notify(ctx, notifier.Message{Text: report, Signal: sig}); err != nil {
		log.WithError(err).Error("notification failed")
		return unitFailed
	}
	log.Info("signal delivered")
	return unitSignal
}

// Evaluate collects and analyzes one pair and returns its report.
// sig is nil when no signal could be produced; report then holds the placeholder text.
func (s *Scheduler) Evaluate(ctx context.Context, symbol, tf string) (report string, sig *model.Signal, err error) {
	series, err := s.Collector.Collect(ctx, symbol, tf)
	if err != nil {
		return "", nil, err
	}
	a := s.Analyzer.Analyze(series)
	sig, ok := strategy.Generate(a, s.Params)
	if !ok {
		return notifier.FormatReport(a, nil), nil, nil
	}
	return notifier.FormatReport(a, sig), sig, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return usage()
	}
	name := strings.ToLower(fields[0])
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}

	switch name {
	case "/run", "立即分析":
		res := s.RunCycle(ctx)
		return fmt.Sprintf("✅ 分析完成 (%s)\n单元: %d | 信号: %d | 跳过: %d | 失败: %d",
			res.RunID[:8], res.Units, res.Signals, res.Skipped, res.Failed)
	case "/signal":
		if len(fields) < 2 {
			return "用法: /signal <交易对> [周期]，例如 /signal BTCUSDT 4h"
		}
		tf := ""
		if len(s.Timeframes) > 0 {
			tf = s.Timeframes[0]
		}
		if len(fields) > 2 {
			tf = strings.ToLower(fields[2])
		}
		report, _, err := s.Evaluate(ctx, fields[1], tf)
		if err != nil {
			return fmt.Sprintf("❌ 分析失败: %v", err)
		}
		return report
	case "/symbols":
		names := make([]string, len(s.Symbols))
		for i, sym := range s.Symbols {
			names[i] = collector.NormalizeSymbol(sym)
		}
		return fmt.Sprintf("📋 监控交易对: %s\n⏱ 分析周期: %s", strings.Join(names, ", "), strings.Join(s.Timeframes, ", "))
	default:
		return usage()
	}
}

func usage() string {
	return "可用命令:\n• /run 立即运行一轮分析\n• /signal <交易对> [周期] 分析单个交易对\n• /symbols 查看监控列表\n• /help 查看帮助"
}
