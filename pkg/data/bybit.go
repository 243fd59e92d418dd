package data

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// bybitIntervals maps engine timeframes to Bybit kline interval codes.
var bybitIntervals = map[string]string{
	"1m":  "1",
	"5m":  "5",
	"15m": "15",
	"1h":  "60",
	"4h":  "240",
	"1d":  "D",
}

// BybitProvider fetches OHLCV klines from the Bybit v5 market API and maps
// them to bars. Public market data needs no API credentials.
type BybitProvider struct {
	client    *bybit_api.Client
	category  string
	timeframe string
	limit     int
	timeout   time.Duration
}

// NewBybitProvider creates a provider for the given category ("spot",
// "linear") and timeframe.
func NewBybitProvider(category, timeframe string, limit int) (*BybitProvider, error) {
	if _, ok := bybitIntervals[timeframe]; !ok {
		return nil, fmt.Errorf("bybit: unsupported timeframe %q", timeframe)
	}
	if category == "" {
		category = "spot"
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}
	return &BybitProvider{
		client:    bybit_api.NewBybitHttpClient("", "", bybit_api.WithBaseURL(bybit_api.MAINNET)),
		category:  category,
		timeframe: timeframe,
		limit:     limit,
		timeout:   20 * time.Second,
	}, nil
}

func (p *BybitProvider) Name() string { return "bybit" }

// Load fetches the most recent klines for a symbol and returns them oldest
// first, validated.
func (p *BybitProvider) Load(symbol string) ([]types.Bar, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	params := map[string]interface{}{
		"category": p.category,
		"symbol":   symbol,
		"interval": bybitIntervals[p.timeframe],
		"limit":    p.limit,
	}
	result, err := p.client.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit: get klines for %s: %w", symbol, err)
	}
	bars, err := p.parseKlines(result, symbol)
	if err != nil {
		return nil, fmt.Errorf("bybit: parse klines for %s: %w", symbol, err)
	}
	if err := Validate(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func (p *BybitProvider) parseKlines(response interface{}, symbol string) ([]types.Bar, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T", response)
	}
	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: %s (code %d)", serverResp.RetMsg, serverResp.RetCode)
	}
	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("unmarshal kline result: %w", err)
	}

	fetchedAt := time.Now().UTC()
	bars := make([]types.Bar, 0, len(klineResult.List))
	// Bybit kline rows: [startTime, open, high, low, close, volume, turnover]
	for _, item := range klineResult.List {
		if len(item) < 6 {
			continue
		}
		ms, err := strconv.ParseInt(item[0], 10, 64)
		if err != nil {
			continue
		}
		bars = append(bars, types.Bar{
			Ts:        time.UnixMilli(ms).UTC(),
			Open:      parseFloat(item[1]),
			High:      parseFloat(item[2]),
			Low:       parseFloat(item[3]),
			Close:     parseFloat(item[4]),
			Volume:    parseFloat(item[5]),
			Symbol:    symbol,
			Timeframe: p.timeframe,
			Source:    "bybit",
			FetchedAt: fetchedAt,
		})
	}
	// Bybit returns newest first.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Ts.Before(bars[j].Ts) })
	return bars, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
