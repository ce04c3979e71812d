package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"sentinel-signals/internal/model"
)

const (
	DefaultFuturesURL = "https://fapi.binance.com"
	DefaultSpotURL    = "https://api.binance.com"
)

// BinanceFetcher implements Fetcher using the Binance USDⓈ-M futures and spot REST APIs.
type BinanceFetcher struct {
	FuturesURL string
	SpotURL    string
	Client     *http.Client
}

// NewBinanceFetcher creates a new fetcher with optional proxy support.
// Empty URLs use the public Binance endpoints.
func NewBinanceFetcher(futuresURL, spotURL, proxyURL string) *BinanceFetcher {
	if futuresURL == "" {
		futuresURL = DefaultFuturesURL
	}
	if spotURL == "" {
		spotURL = DefaultSpotURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &BinanceFetcher{
		FuturesURL: futuresURL,
		SpotURL:    spotURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// FetchKlines returns chronological bars. Binance rows are
// [openTime, open, high, low, close, volume, closeTime, ...] with prices as strings.
func (f *BinanceFetcher) FetchKlines(ctx context.Context, symbol, timeframe string, limit int) ([]model.OHLCV, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", timeframe)
	q.Set("limit", strconv.Itoa(limit))
	body, err := f.get(ctx, f.FuturesURL+"/fapi/v1/klines?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}

	rows := gjson.ParseBytes(body)
	if !rows.IsArray() {
		return nil, fmt.Errorf("decode klines: unexpected payload %.100s", body)
	}
	var bars []model.OHLCV
	var parseErr error
	rows.ForEach(func(_, row gjson.Result) bool {
		cols := row.Array()
		if len(cols) < 6 {
			parseErr = fmt.Errorf("decode klines: row has %d columns", len(cols))
			return false
		}
		bars = append(bars, model.OHLCV{
			Time:   time.UnixMilli(cols[0].Int()).UTC(),
			Open:   cols[1].Float(),
			High:   cols[2].Float(),
			Low:    cols[3].Float(),
			Close:  cols[4].Float(),
			Volume: cols[5].Float(),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// FetchTicker returns the spot 24h ticker.
func (f *BinanceFetcher) FetchTicker(ctx context.Context, symbol string) (*model.Ticker, error) {
	body, err := f.get(ctx, f.SpotURL+"/api/v3/ticker/24hr?symbol="+url.QueryEscape(symbol))
	if err != nil {
		return nil, fmt.Errorf("fetch ticker: %w", err)
	}
	res := gjson.ParseBytes(body)
	if !res.Get("lastPrice").Exists() {
		return nil, fmt.Errorf("decode ticker: lastPrice missing")
	}
	return &model.Ticker{
		Last:   res.Get("lastPrice").Float(),
		Bid:    res.Get("bidPrice").Float(),
		Ask:    res.Get("askPrice").Float(),
		Volume: res.Get("volume").Float(),
	}, nil
}

// FetchFundingRate returns the last settled funding rate from the premium index.
func (f *BinanceFetcher) FetchFundingRate(ctx context.Context, symbol string) (float64, error) {
	body, err := f.get(ctx, f.FuturesURL+"/fapi/v1/premiumIndex?symbol="+url.QueryEscape(symbol))
	if err != nil {
		return 0, fmt.Errorf("fetch funding rate: %w", err)
	}
	rate := gjson.GetBytes(body, "lastFundingRate")
	if !rate.Exists() {
		return 0, fmt.Errorf("decode funding rate: lastFundingRate missing")
	}
	return rate.Float(), nil
}

// FetchOpenInterest returns the open interest in contracts.
func (f *BinanceFetcher) FetchOpenInterest(ctx context.Context, symbol string) (float64, error) {
	body, err := f.get(ctx, f.FuturesURL+"/fapi/v1/openInterest?symbol="+url.QueryEscape(symbol))
	if err != nil {
		return 0, fmt.Errorf("fetch open interest: %w", err)
	}
	oi := gjson.GetBytes(body, "openInterest")
	if !oi.Exists() {
		return 0, fmt.Errorf("decode open interest: openInterest missing")
	}
	return oi.Float(), nil
}

// get performs the request and turns Binance error payloads into errors.
func (f *BinanceFetcher) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if msg := gjson.GetBytes(body, "msg"); msg.Exists() {
			return nil, fmt.Errorf("status %d: %s (code %d)", resp.StatusCode, msg.String(), gjson.GetBytes(body, "code").Int())
		}
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
