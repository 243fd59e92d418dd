package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/minhle-quant/tradesim/internal/monitoring"
	"github.com/minhle-quant/tradesim/internal/options"
	"github.com/minhle-quant/tradesim/pkg/config"
	"github.com/minhle-quant/tradesim/pkg/data"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	mode := flag.String("mode", "chain", "chain, scan, price, structure, wheel, covered_call or vertical")
	symbol := flag.String("symbol", "", "underlying symbol")
	rate := flag.Float64("rate", 0.02, "annual risk-free rate")

	// price mode
	spot := flag.Float64("spot", 100, "spot price")
	strike := flag.Float64("strike", 100, "strike price")
	days := flag.Float64("days", 30, "days to expiry")
	vol := flag.Float64("vol", 0.3, "volatility")
	optType := flag.String("type", "call", "call or put")

	// scan mode
	minDelta := flag.Float64("min-delta", 0, "minimum delta (0 disables)")
	maxDelta := flag.Float64("max-delta", 0, "maximum delta (0 disables)")
	absDelta := flag.Bool("abs-delta", false, "filter on absolute delta")
	minIVRank := flag.Float64("min-iv-rank", 0, "minimum chain IV rank (0 disables)")
	minPOP := flag.Float64("min-pop", 0, "minimum probability of profit (0 disables)")
	ivStorePath := flag.String("iv-store", "", "SQLite IV history database (scan/chain modes)")

	// structure mode
	structure := flag.String("structure", "covered_call", "covered_call, cash_secured_put, bull_call, bear_put or iron_condor")
	strike2 := flag.Float64("strike2", 110, "second strike (spreads)")
	premium := flag.Float64("premium", 2, "premium of the primary leg")
	premium2 := flag.Float64("premium2", 0.5, "premium of the secondary leg (spreads)")
	putStrikes := flag.String("put-strikes", "95,90", "short,long put strikes (iron condor)")
	callStrikes := flag.String("call-strikes", "105,110", "short,long call strikes (iron condor)")
	putPremiums := flag.String("put-premiums", "1.0,0.4", "short,long put premiums (iron condor)")
	callPremiums := flag.String("call-premiums", "1.2,0.3", "short,long call premiums (iron condor)")

	// backtest modes
	cash := flag.Float64("balance", 10_000, "initial cash")
	holdDays := flag.Int("hold-days", 30, "roll period in bars")
	otmPct := flag.Float64("otm-pct", 0.05, "OTM percentage for short strikes")
	lookback := flag.Int("lookback", 20, "realized vol lookback")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if *symbol != "" {
		cfg.Data.Symbol = *symbol
	}

	switch *mode {
	case "price":
		runPrice(*spot, *strike, *days, *rate, *vol, options.OptionType(*optType))
	case "chain":
		runChain(cfg, *rate, *ivStorePath, nil)
	case "scan":
		filters := options.ScanFilters{AbsDelta: *absDelta}
		if *minDelta != 0 {
			filters.MinDelta = minDelta
		}
		if *maxDelta != 0 {
			filters.MaxDelta = maxDelta
		}
		if *minIVRank != 0 {
			filters.MinIVRank = minIVRank
		}
		if *minPOP != 0 {
			filters.MinPOP = minPOP
		}
		runChain(cfg, *rate, *ivStorePath, &filters)
	case "structure":
		runStructure(*structure, *spot, *strike, *strike2, *premium, *premium2,
			*putStrikes, *callStrikes, *putPremiums, *callPremiums)
	case "wheel", "covered_call", "vertical":
		runRollBacktest(cfg, *mode, *cash, *holdDays, *otmPct, *lookback, *rate)
	default:
		log.Fatalf("❌ unknown mode %q", *mode)
	}
}

func runPrice(spot, strike, days, rate, vol float64, optType options.OptionType) {
	if optType != options.Call && optType != options.Put {
		log.Fatalf("❌ type must be call or put, got %q", optType)
	}
	t := days / 365.0
	price := options.BSPrice(spot, strike, t, rate, vol, optType)
	greeks := options.BSGreeks(spot, strike, t, rate, vol, optType)
	stats := options.BSStats(spot, strike, t, rate, vol, optType)

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(fmt.Sprintf("BLACK-SCHOLES %s %.2f/%.2f %gd", optType, spot, strike, days))
	tw.SetStyle(table.StyleRounded)
	tw.AppendRows([]table.Row{
		{"Price", fmt.Sprintf("%.4f", price)},
		{"Delta", fmt.Sprintf("%.4f", greeks.Delta)},
		{"Gamma", fmt.Sprintf("%.6f", greeks.Gamma)},
		{"Theta", fmt.Sprintf("%.4f", greeks.Theta)},
		{"Vega", fmt.Sprintf("%.4f", greeks.Vega)},
		{"Rho", fmt.Sprintf("%.4f", greeks.Rho)},
		{"Prob ITM", fmt.Sprintf("%.4f", stats.ProbITM)},
	})
	tw.Render()
}

func parsePair(raw, name string) (float64, float64) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		log.Fatalf("❌ %s: want two comma-separated values, got %q", name, raw)
	}
	first, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		log.Fatalf("❌ %s: %v", name, err)
	}
	second, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		log.Fatalf("❌ %s: %v", name, err)
	}
	return first, second
}

func runStructure(structure string, spot, strike, strike2, premium, premium2 float64,
	putStrikes, callStrikes, putPremiums, callPremiums string) {
	var outcome options.StructureOutcome
	switch structure {
	case "covered_call":
		outcome = options.CoveredCall(spot, strike, premium)
	case "cash_secured_put":
		outcome = options.CashSecuredPut(strike, premium)
	case "bull_call":
		outcome = options.BullCallSpread(strike, premium, strike2, premium2)
	case "bear_put":
		outcome = options.BearPutSpread(strike, premium, strike2, premium2)
	case "iron_condor":
		shortPut, longPut := parsePair(putStrikes, "put-strikes")
		shortCall, longCall := parsePair(callStrikes, "call-strikes")
		shortPutPrem, longPutPrem := parsePair(putPremiums, "put-premiums")
		shortCallPrem, longCallPrem := parsePair(callPremiums, "call-premiums")
		outcome = options.IronCondor(shortPut, shortPutPrem, longPut, longPutPrem,
			shortCall, shortCallPrem, longCall, longCallPrem)
	default:
		log.Fatalf("❌ unknown structure %q", structure)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(fmt.Sprintf("STRUCTURE %s", outcome.Notes))
	tw.SetStyle(table.StyleRounded)
	tw.AppendRows([]table.Row{
		{"Max Profit", fmt.Sprintf("$%.2f", outcome.MaxProfit)},
		{"Max Loss", fmt.Sprintf("$%.2f", outcome.MaxLoss)},
	})
	for i, breakeven := range outcome.Breakevens {
		tw.AppendRow(table.Row{fmt.Sprintf("Breakeven %d", i+1), fmt.Sprintf("%.2f", breakeven)})
	}
	tw.Render()
}

func runChain(cfg *config.Config, rate float64, ivStorePath string, filters *options.ScanFilters) {
	barSource := data.NewSyntheticProvider()
	barSource.Timeframe = cfg.Data.Timeframe
	barSource.Seed = cfg.Run.Seed
	provider := options.NewSyntheticProvider(barSource)
	provider.Rate = rate

	chain, err := provider.Chain(context.Background(), cfg.Data.Symbol, cfg.Data.Limit)
	if err != nil {
		monitoring.RecordError("chain")
		log.Fatalf("❌ %v", err)
	}
	options.EnrichChain(&chain, rate, time.Now().UTC())

	if ivStorePath != "" {
		store, err := options.NewIVHistoryStore(ivStorePath)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		defer store.Close()
		if err := store.RecordSnapshot(chain.Contracts, time.Now().UTC()); err != nil {
			log.Fatalf("❌ %v", err)
		}
		for i := range chain.Contracts {
			rank, ok, err := store.IVRankHistory(chain.Contracts[i], 365)
			if err != nil {
				log.Fatalf("❌ %v", err)
			}
			if ok {
				chain.Contracts[i].Greeks.IVRankHist = rank
			}
		}
	}

	if filters == nil {
		printChain(chain)
		return
	}
	rows := options.ScanContracts(chain.Contracts, *filters)
	printScan(chain.Symbol, rows)
}

func printChain(chain options.OptionChain) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(fmt.Sprintf("CHAIN %s @ %.2f (%s)", chain.Symbol, chain.UnderlyingPrice, chain.Provider))
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Contract", "Type", "Strike", "Expiry", "Bid", "Ask", "IV", "Delta", "Theta"})
	for _, c := range chain.Contracts {
		tw.AppendRow(table.Row{
			c.Symbol,
			c.Type,
			fmt.Sprintf("%.2f", c.Strike),
			c.Expiration.Format("2006-01-02"),
			fmt.Sprintf("%.2f", c.Bid),
			fmt.Sprintf("%.2f", c.Ask),
			fmt.Sprintf("%.2f", c.IV),
			fmt.Sprintf("%.3f", c.Greeks.Delta),
			fmt.Sprintf("%.3f", c.Greeks.Theta),
		})
	}
	tw.Render()
}

func printScan(symbol string, rows []options.ScanRow) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(fmt.Sprintf("SCAN %s (%d matches)", symbol, len(rows)))
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Contract", "Delta", "POP", "IV Rank", "IV Rank (hist)"})
	for _, row := range rows {
		tw.AppendRow(table.Row{
			row.Contract.Symbol,
			fmt.Sprintf("%.3f", row.Delta),
			fmt.Sprintf("%.3f", row.POP),
			fmt.Sprintf("%.3f", row.IVRank),
			fmt.Sprintf("%.3f", row.IVRankHist),
		})
	}
	tw.Render()
}

func runRollBacktest(cfg *config.Config, mode string, cash float64, holdDays int, otmPct float64, lookback int, rate float64) {
	barSource := data.NewSyntheticProvider()
	barSource.Timeframe = "1d"
	barSource.Seed = cfg.Run.Seed
	if cfg.Data.Limit > 0 {
		barSource.Bars = cfg.Data.Limit
	}
	bars, err := barSource.Load(cfg.Data.Symbol)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	startedAt := time.Now()
	var result options.OptionsBacktestResult
	switch mode {
	case "wheel":
		wheelCfg := options.DefaultWheelConfig()
		wheelCfg.InitialCash = cash
		wheelCfg.HoldDays = holdDays
		wheelCfg.PutOTMPct = otmPct
		wheelCfg.CallOTMPct = otmPct
		wheelCfg.Lookback = lookback
		wheelCfg.Rate = rate
		result = options.BacktestWheel(bars, wheelCfg)
	case "covered_call":
		ccCfg := options.DefaultCoveredCallConfig()
		ccCfg.InitialCash = cash
		ccCfg.HoldDays = holdDays
		ccCfg.CallOTMPct = otmPct
		ccCfg.Lookback = lookback
		ccCfg.Rate = rate
		result, err = options.BacktestCoveredCall(bars, ccCfg)
		if err != nil {
			monitoring.RecordError("options_backtest")
			log.Fatalf("❌ %v", err)
		}
	case "vertical":
		vCfg := options.DefaultVerticalConfig()
		vCfg.InitialCash = cash
		vCfg.HoldDays = holdDays
		vCfg.ShortPct = otmPct
		vCfg.Lookback = lookback
		vCfg.Rate = rate
		result = options.BacktestVertical(bars, vCfg)
	}
	monitoring.RecordRun(mode, "completed", time.Since(startedAt).Seconds())

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(fmt.Sprintf("OPTIONS BACKTEST %s / %s", mode, cfg.Data.Symbol))
	tw.SetStyle(table.StyleRounded)
	tw.AppendRows([]table.Row{
		{"CAGR", fmt.Sprintf("%.4f", result.Metrics["cagr"])},
		{"Sharpe", fmt.Sprintf("%.4f", result.Metrics["sharpe"])},
		{"Max Drawdown", fmt.Sprintf("%.4f", result.Metrics["max_drawdown"])},
		{"Rolls", fmt.Sprintf("%d", len(result.Trades))},
	})
	if n := len(result.EquityCurve); n > 0 {
		tw.AppendRow(table.Row{"Final Equity", fmt.Sprintf("$%.2f", result.EquityCurve[n-1])})
	}
	tw.Render()
}
