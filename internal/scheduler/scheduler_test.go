package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"sentinel-signals/internal/analyzer"
	"sentinel-signals/internal/calculator"
	"sentinel-signals/internal/collector"
	"sentinel-signals/internal/model"
	"sentinel-signals/internal/notifier"
	"sentinel-signals/internal/strategy"
)

type recordingNotifier struct {
	mu    sync.Mutex
	msgs  []notifier.Message
	err   error
	panic bool
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(_ context.Context, msg notifier.Message) error {
	if r.panic {
		panic("notifier exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

// symbolFetcher fails klines for one exchange symbol and serves mock data otherwise.
type symbolFetcher struct {
	*collector.MockFetcher
	bad string
}

func (f *symbolFetcher) FetchKlines(ctx context.Context, symbol, tf string, limit int) ([]model.OHLCV, error) {
	if symbol == f.bad {
		return nil, errors.New("exchange rejected symbol")
	}
	return f.MockFetcher.FetchKlines(ctx, symbol, tf, limit)
}

func newTestScheduler(t *testing.T, f collector.Fetcher, n notifier.Notifier, symbols, tfs []string) (*Scheduler, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	col := collector.NewCollector(f, nil, 150, log)
	an := analyzer.New(calculator.DefaultParams(), 0, log)
	return NewScheduler(col, an, n, strategy.DefaultParams(), symbols, tfs, 2, log), hook
}

func mockFetcher() *collector.MockFetcher {
	return &collector.MockFetcher{Price: 30000, Drift: 0.002, Funding: 0.0001, Anchor: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
}

func TestRunCycle(t *testing.T) {
	rec := &recordingNotifier{}
	s, hook := newTestScheduler(t, mockFetcher(), rec, []string{"BTCUSDT", "ETHUSDT"}, []string{"1h", "4h"})

	res := s.RunCycle(context.Background())
	if res.Units != 4 || res.Signals != 4 || res.Failed != 0 || res.Skipped != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(rec.msgs) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(rec.msgs))
	}
	seen := map[string]bool{}
	for _, m := range rec.msgs {
		if m.Signal == nil {
			t.Fatal("notification without signal")
		}
		if !strings.Contains(m.Text, m.Signal.Symbol) {
			t.Errorf("report does not mention %s", m.Signal.Symbol)
		}
		seen[m.Signal.Symbol+" "+m.Signal.Timeframe] = true
	}
	for _, want := range []string{"BTC/USDT 1h", "BTC/USDT 4h", "ETH/USDT 1h", "ETH/USDT 4h"} {
		if !seen[want] {
			t.Errorf("missing unit %s", want)
		}
	}
	for _, e := range hook.AllEntries() {
		if e.Message == "signal delivered" && e.Data["run_id"] != res.RunID {
			t.Errorf("unit log without run id: %v", e.Data)
		}
	}
}

func TestRunCycle_FailureIsIsolated(t *testing.T) {
	rec := &recordingNotifier{}
	f := &symbolFetcher{MockFetcher: mockFetcher(), bad: "XRPUSDT"}
	s, hook := newTestScheduler(t, f, rec, []string{"BTCUSDT", "XRPUSDT"}, []string{"1h"})

	res := s.RunCycle(context.Background())
	if res.Signals != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	var failed *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "analysis unit failed" {
			failed = e
		}
	}
	if failed == nil || failed.Data["symbol"] != "XRPUSDT" || failed.Level != logrus.ErrorLevel {
		t.Errorf("failure not logged with unit fields: %+v", failed)
	}
}

func TestRunCycle_PanicIsRecovered(t *testing.T) {
	s, hook := newTestScheduler(t, mockFetcher(), &recordingNotifier{panic: true}, []string{"BTCUSDT"}, []string{"1h", "4h"})
	res := s.RunCycle(context.Background())
	if res.Failed != 2 {
		t.Fatalf("expected both units to fail, got %+v", res)
	}
	found := false
	for _, e := range hook.AllEntries() {
		if e.Message == "analysis unit panicked" {
			found = true
		}
	}
	if !found {
		t.Error("panic not logged")
	}
}

func TestRunCycle_NoSignalIsSkipped(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := []model.OHLCV{
		{Time: t0, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
		{Time: t0.Add(time.Hour), Open: 0, High: 0, Low: 0, Close: 0, Volume: 0},
	}
	rec := &recordingNotifier{}
	s, hook := newTestScheduler(t, &collector.MockFetcher{Bars: bars}, rec, []string{"BTCUSDT"}, []string{"1h"})

	res := s.RunCycle(context.Background())
	if res.Skipped != 1 || len(rec.msgs) != 0 {
		t.Fatalf("expected skipped unit without notification, got %+v (%d msgs)", res, len(rec.msgs))
	}
	found := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.InfoLevel && e.Message == notifier.TextNoData {
			found = true
		}
	}
	if !found {
		t.Error("placeholder report not logged at info")
	}
}

func TestRunCycle_NotifyErrorCountsAsFailure(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("telegram down")}
	s, _ := newTestScheduler(t, mockFetcher(), rec, []string{"BTCUSDT"}, []string{"1h"})
	if res := s.RunCycle(context.Background()); res.Failed != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestHandleCommand(t *testing.T) {
	rec := &recordingNotifier{}
	s, _ := newTestScheduler(t, mockFetcher(), rec, []string{"BTCUSDT", "solusdt"}, []string{"4h", "1d"})
	ctx := context.Background()

	if got := s.HandleCommand(ctx, "/symbols"); !strings.Contains(got, "BTC/USDT, SOL/USDT") || !strings.Contains(got, "4h, 1d") {
		t.Errorf("/symbols = %q", got)
	}
	if got := s.HandleCommand(ctx, "/signal@sentinel_bot ethusdt"); !strings.Contains(got, "ETH/USDT 4小时行情分析") {
		t.Errorf("/signal with default timeframe = %q", got)
	}
	if got := s.HandleCommand(ctx, "/signal BTCUSDT 1d"); !strings.Contains(got, "日线行情分析") {
		t.Errorf("/signal with timeframe = %q", got)
	}
	if got := s.HandleCommand(ctx, "/signal BTCUSDT 7h"); !strings.HasPrefix(got, "❌ 分析失败") {
		t.Errorf("/signal bad timeframe = %q", got)
	}
	if got := s.HandleCommand(ctx, "/signal"); !strings.Contains(got, "用法") {
		t.Errorf("/signal without args = %q", got)
	}
	if len(rec.msgs) != 0 {
		t.Error("/signal should reply directly, not notify")
	}

	got := s.HandleCommand(ctx, "/run")
	if !strings.Contains(got, "单元: 4 | 信号: 4") {
		t.Errorf("/run = %q", got)
	}
	if len(rec.msgs) != 4 {
		t.Errorf("/run should notify every unit, got %d", len(rec.msgs))
	}

	for _, cmd := range []string{"/help", "hello", ""} {
		if got := s.HandleCommand(ctx, cmd); !strings.Contains(got, "可用命令") {
			t.Errorf("%q = %q", cmd, got)
		}
	}
}

func TestRegister(t *testing.T) {
	s, _ := newTestScheduler(t, mockFetcher(), &recordingNotifier{}, []string{"BTCUSDT"}, []string{"1h"})
	if err := s.Register(context.Background(), "0 0 * * * *"); err != nil {
		t.Errorf("valid spec: %v", err)
	}
	if err := s.Register(context.Background(), "not a spec"); err == nil {
		t.Error("expected error for invalid spec")
	}
	if n := len(s.Cron.Entries()); n != 1 {
		t.Errorf("expected 1 cron entry, got %d", n)
	}
}
