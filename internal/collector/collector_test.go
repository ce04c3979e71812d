package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"sentinel-signals/internal/cache"
	"sentinel-signals/internal/model"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in, want, exchange string
	}{
		{"BTCUSDT", "BTC/USDT", "BTCUSDT"},
		{"btc/usdt", "BTC/USDT", "BTCUSDT"},
		{"ETHUSDC", "ETH/USDC", "ETHUSDC"},
		{"BTCTUSD", "BTC/TUSD", "BTCTUSD"},
		{"XRPUSD", "XRP/USD", "XRPUSD"},
		{"ETHBTC", "ET/HBTC", "ETHBTC"},
		{"ABCD", "A/BCD", "ABCD"},
		{"BTC", "BTC", "BTC"},
	}
	for _, tt := range tests {
		if got := NormalizeSymbol(tt.in); got != tt.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if got := ExchangeSymbol(tt.in); got != tt.exchange {
			t.Errorf("ExchangeSymbol(%q) = %q, want %q", tt.in, got, tt.exchange)
		}
	}
}

func TestCleanBars(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []model.OHLCV{
		{Time: t0.Add(2 * time.Hour), Close: 3},
		{Time: t0, Close: 1},
		{Time: t0.Add(time.Hour), Close: 2},
		{Time: t0.Add(2 * time.Hour), Close: 33},
	}
	out := cleanBars(in)
	want := []float64{1, 2, 33}
	if len(out) != len(want) {
		t.Fatalf("expected %d bars, got %d", len(want), len(out))
	}
	for i, w := range want {
		if out[i].Close != w {
			t.Errorf("bar %d close = %.0f, want %.0f", i, out[i].Close, w)
		}
	}
}

func newBinanceServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/klines", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "BTCUSDT" || r.URL.Query().Get("interval") != "1h" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
			return
		}
		w.Write([]byte(`[
			[1717200000000,"101.0","103.0","100.0","102.5","1200.5",1717203599999,"0",10,"0","0","0"],
			[1717196400000,"100.0","101.5","99.0","101.0","900",1717199999999,"0",8,"0","0","0"]
		]`))
	})
	mux.HandleFunc("/fapi/v1/premiumIndex", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","markPrice":"102.4","lastFundingRate":"0.00012000"}`))
	})
	mux.HandleFunc("/fapi/v1/openInterest", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"openInterest":"81234.567","symbol":"BTCUSDT","time":1717200000000}`))
	})
	mux.HandleFunc("/api/v3/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"102.30","bidPrice":"102.29","askPrice":"102.31","volume":"5000.1"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBinanceFetcher(t *testing.T) {
	srv := newBinanceServer(t)
	f := NewBinanceFetcher(srv.URL, srv.URL, "")
	ctx := context.Background()

	bars, err := f.FetchKlines(ctx, "BTCUSDT", "1h", 2)
	if err != nil {
		t.Fatalf("klines: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].Time.Before(bars[1].Time) {
		t.Error("bars not chronological")
	}
	if bars[1].Close != 102.5 || bars[1].Volume != 1200.5 || bars[0].Open != 100 {
		t.Errorf("unexpected bars %+v", bars)
	}

	if _, err := f.FetchKlines(ctx, "NOPE", "1h", 2); err == nil {
		t.Error("expected error for invalid symbol")
	}

	rate, err := f.FetchFundingRate(ctx, "BTCUSDT")
	if err != nil || rate != 0.00012 {
		t.Errorf("funding = %v (%v), want 0.00012", rate, err)
	}
	oi, err := f.FetchOpenInterest(ctx, "BTCUSDT")
	if err != nil || oi != 81234.567 {
		t.Errorf("open interest = %v (%v)", oi, err)
	}
	tk, err := f.FetchTicker(ctx, "BTCUSDT")
	if err != nil || tk.Last != 102.3 || tk.Bid != 102.29 {
		t.Errorf("ticker = %+v (%v)", tk, err)
	}
}

func TestCollect_FromMock(t *testing.T) {
	log, _ := test.NewNullLogger()
	anchor := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	f := &MockFetcher{Price: 50000, Drift: 0.001, Funding: 0.0002, OI: 777, Spot: &model.Ticker{Last: 49990}, Anchor: anchor}
	c := NewCollector(f, nil, 120, log)
	fixed := anchor.Add(30 * time.Minute)
	c.now = func() time.Time { return fixed }

	s, err := c.Collect(context.Background(), "btcusdt", "1h")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if s.Symbol != "BTC/USDT" || s.Timeframe != "1h" || s.Exchange != "mock" {
		t.Errorf("unexpected identity %+v", s)
	}
	if s.Len() != 120 {
		t.Errorf("expected 120 bars, got %d", s.Len())
	}
	if !s.Bars[s.Len()-1].Time.Equal(anchor) {
		t.Errorf("newest bar at %v, want %v", s.Bars[s.Len()-1].Time, anchor)
	}
	if s.FundingRate != 0.0002 || s.OpenInterest != 777 || s.Spot == nil {
		t.Errorf("context missing: %+v", s)
	}
	if !s.AsOf().Equal(fixed) {
		t.Errorf("AsOf = %v, want %v", s.AsOf(), fixed)
	}
}

func TestCollect_AuxFailuresAreDefaulted(t *testing.T) {
	log, hook := test.NewNullLogger()
	f := &MockFetcher{Price: 10, Anchor: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), AuxErr: errors.New("boom")}
	s, err := NewCollector(f, nil, 50, log).Collect(context.Background(), "SOLUSDT", "4h")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if s.FundingRate != 0 || s.OpenInterest != 0 || s.Spot != nil {
		t.Errorf("expected zero context, got %+v", s)
	}
	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	if warnings != 3 {
		t.Errorf("expected 3 warnings, got %d", warnings)
	}
}

func TestCollect_FallsBackToCache(t *testing.T) {
	log, _ := test.NewNullLogger()
	db, err := cache.NewSQLiteCache(filepath.Join(t.TempDir(), "bars.db"), log)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	anchor := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	f := &MockFetcher{Price: 3000, Anchor: anchor}
	c := NewCollector(f, db, 60, log)
	if _, err := c.Collect(context.Background(), "ETHUSDT", "1h"); err != nil {
		t.Fatalf("warm collect: %v", err)
	}

	f.KlineErr = errors.New("exchange down")
	s, err := c.Collect(context.Background(), "ETHUSDT", "1h")
	if err != nil {
		t.Fatalf("expected cached series, got %v", err)
	}
	if s.Len() != 60 || !s.Bars[59].Time.Equal(anchor) {
		t.Errorf("unexpected cached series: %d bars", s.Len())
	}

	if _, err := c.Collect(context.Background(), "XRPUSDT", "1h"); err == nil {
		t.Error("expected error without cached bars")
	}
}

func TestCollect_NoBars(t *testing.T) {
	log, _ := test.NewNullLogger()
	c := NewCollector(&MockFetcher{Bars: []model.OHLCV{}}, nil, 10, log)
	if _, err := c.Collect(context.Background(), "BTCUSDT", "1h"); !errors.Is(err, ErrNoBars) {
		t.Errorf("expected ErrNoBars, got %v", err)
	}
	if _, err := c.Collect(context.Background(), "BTCUSDT", "7h"); err == nil {
		t.Error("expected error for unsupported timeframe")
	}
}
