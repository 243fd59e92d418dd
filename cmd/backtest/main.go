package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minhle-quant/tradesim/internal/backtest"
	"github.com/minhle-quant/tradesim/internal/logger"
	"github.com/minhle-quant/tradesim/internal/monitoring"
	"github.com/minhle-quant/tradesim/internal/storage"
	"github.com/minhle-quant/tradesim/internal/strategy"
	"github.com/minhle-quant/tradesim/pkg/config"
	"github.com/minhle-quant/tradesim/pkg/data"
	"github.com/minhle-quant/tradesim/pkg/reporting"
	"github.com/minhle-quant/tradesim/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	strategyName := flag.String("strategy", "", "strategy name (momentum, mean_reversion, breakout)")
	symbol := flag.String("symbol", "", "symbol to simulate")
	source := flag.String("source", "", "bar source: csv, synthetic or bybit")
	dataFile := flag.String("data", "", "CSV data file (csv source)")
	timeframe := flag.String("interval", "", "bar timeframe (1m, 5m, 15m, 1h, 4h, 1d)")
	cash := flag.Float64("balance", 0, "initial cash (0 uses config)")
	paramsFlag := flag.String("params", "", "strategy params as k=v,k=v")
	mode := flag.String("mode", "single", "single, grid or walkforward")
	gridFlag := flag.String("grid", "", "param grid as k=v1|v2,k=v3|v4 (grid mode)")
	objective := flag.String("objective", "sharpe", "grid objective metric")
	trainWindow := flag.Int("train", 60, "walk-forward train window")
	testWindow := flag.Int("test", 20, "walk-forward test window")
	step := flag.Int("step", 0, "walk-forward step (0 uses test window)")
	xlsxPath := flag.String("xlsx", "", "write trades workbook to this path")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	applyFlagOverrides(cfg, *strategyName, *symbol, *source, *timeframe, *cash)

	if *metricsAddr != "" {
		cfg.Run.MetricsAddr = *metricsAddr
	}
	if cfg.Run.MetricsAddr != "" {
		go serveMetrics(cfg.Run.MetricsAddr)
	}

	bars, err := loadBars(cfg, *dataFile)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	fmt.Printf("📈 Loaded %d bars for %s (%s)\n", len(bars), cfg.Data.Symbol, cfg.Data.Timeframe)

	params := strategy.Params{}
	if err := parseParams(*paramsFlag, params); err != nil {
		log.Fatalf("❌ %v", err)
	}
	if cfg.Run.Lookback > 0 {
		if _, ok := params["lookback"]; !ok {
			params["lookback"] = float64(cfg.Run.Lookback)
		}
	}

	opts := backtest.Options{
		Execution:   &cfg.Execution,
		Risk:        &cfg.Risk,
		InitialCash: cfg.Broker.InitialCash,
	}

	switch *mode {
	case "single":
		runSingle(cfg, params, bars, opts, *xlsxPath)
	case "grid":
		runGrid(cfg, *gridFlag, *objective, bars, opts)
	case "walkforward":
		runWalkForward(cfg, params, bars, opts, *trainWindow, *testWindow, *step)
	default:
		log.Fatalf("❌ unknown mode %q", *mode)
	}
}

func applyFlagOverrides(cfg *config.Config, strategyName, symbol, source, timeframe string, cash float64) {
	if strategyName != "" {
		cfg.Run.Strategy = strategyName
	}
	if symbol != "" {
		cfg.Data.Symbol = symbol
	}
	if source != "" {
		cfg.Data.Source = source
	}
	if timeframe != "" {
		cfg.Data.Timeframe = timeframe
	}
	if cash > 0 {
		cfg.Broker.InitialCash = cash
	}
}

func loadBars(cfg *config.Config, dataFile string) ([]types.Bar, error) {
	switch cfg.Data.Source {
	case "csv":
		path := dataFile
		if path == "" {
			path = cfg.Data.CSVPath
		}
		if path == "" {
			return nil, fmt.Errorf("csv source needs -data or data.csv_path")
		}
		return data.NewCSVProvider(cfg.Data.Symbol, cfg.Data.Timeframe).Load(path)
	case "synthetic":
		provider := data.NewSyntheticProvider()
		provider.Timeframe = cfg.Data.Timeframe
		provider.Seed = cfg.Run.Seed
		if cfg.Data.Limit > 0 {
			provider.Bars = cfg.Data.Limit
		}
		return provider.Load(cfg.Data.Symbol)
	case "bybit":
		provider, err := data.NewBybitProvider(cfg.Data.Category, cfg.Data.Timeframe, cfg.Data.Limit)
		if err != nil {
			return nil, err
		}
		return provider.Load(cfg.Data.Symbol)
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}

// observedAudit fans each audit event out to the run store, the per-run
// file log and the Prometheus counters.
type observedAudit struct {
	store  *storage.RunAudit
	runLog *logger.Logger
}

func (a observedAudit) RecordSignal(signal types.Signal) {
	a.store.RecordSignal(signal)
}

func (a observedAudit) RecordOrder(order types.OrderRequest, decision types.RiskDecision) {
	a.store.RecordOrder(order, decision)
	a.runLog.LogRiskDecision(order, decision)
	monitoring.RecordRiskDecision(string(decision.Decision), decision.Reason)
}

func (a observedAudit) RecordFill(fill types.Fill) {
	a.store.RecordFill(fill)
	a.runLog.LogFill(fill)
	monitoring.RecordFill(fill.Symbol, string(fill.Side), fill.Fee)
}

func runSingle(cfg *config.Config, params strategy.Params, bars []types.Bar, opts backtest.Options, xlsxPath string) {
	strat, err := strategy.Default.Create(cfg.Run.Strategy, params)
	if err != nil {
		log.Fatalf("❌ %v (available: %s)", err, strings.Join(strategy.Default.List(), ", "))
	}

	runID := uuid.NewString()
	startedAt := time.Now()

	store, err := storage.NewRunStore(cfg.Run.RunStorePath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer store.Close()

	runLog, err := logger.NewLogger("logs", runID, "backtest")
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer runLog.Close()
	runLog.Info("strategy=%s symbol=%s bars=%d", strat.Name(), cfg.Data.Symbol, len(bars))

	opts.Audit = observedAudit{store: store.NewRunAudit(runID), runLog: runLog}

	result, err := backtest.Run(strat, bars, opts)
	status := "completed"
	if err != nil {
		status = "failed"
		monitoring.RecordError("backtest")
		runLog.LogError("backtest", err)
	}
	monitoring.RecordRun("backtest", status, time.Since(startedAt).Seconds())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	runLog.LogMetrics(result.Metrics)
	if n := len(result.EquityCurve); n > 0 {
		monitoring.UpdatePortfolio(runID, result.EquityCurve[n-1], result.Metrics["max_drawdown"])
	}

	record := storage.RunRecord{
		RunID:       runID,
		Mode:        "backtest",
		Status:      status,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
		Strategy:    strat.Name(),
		Symbol:      cfg.Data.Symbol,
		Metrics:     result.Metrics,
	}
	if err := store.RecordRun(record); err != nil {
		runLog.LogError("record run", err)
	}

	regimeLabels := backtest.RegimeLabels(bars, 0, 0, 0)
	regimeSummary := backtest.RegimeSummary(regimeLabels)
	runLog.Info("regimes=%v", regimeSummary)

	ensembleWeights := strategy.NewEnsemble().
		WeightByPerformance(map[string]float64{strat.Name(): result.Metrics["sharpe"]}, 0)
	runLog.Info("ensemble weights=%v", ensembleWeights)

	writer, err := storage.NewArtifactWriter(cfg.Run.ArtifactsDir)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := writer.WriteRun(runID, result, cfg); err != nil {
		log.Fatalf("❌ %v", err)
	}
	session := map[string]any{
		"regime_labels":    regimeLabels,
		"regime_summary":   regimeSummary,
		"ensemble_weights": ensembleWeights,
	}
	if err := writer.WriteExtra(runID, "session.json", session); err != nil {
		log.Fatalf("❌ %v", err)
	}

	reporting.PrintResult(fmt.Sprintf("BACKTEST %s / %s", strat.Name(), cfg.Data.Symbol), result)
	fmt.Printf("🆔 Run: %s\n", runID)
	fmt.Printf("📁 Artifacts: %s\n", writer.RunDir(runID))

	if xlsxPath != "" {
		if err := reporting.WriteResultXLSX(result, xlsxPath); err != nil {
			log.Fatalf("❌ %v", err)
		}
		fmt.Printf("📊 Workbook: %s\n", xlsxPath)
	}
}

func runGrid(cfg *config.Config, gridFlag, objective string, bars []types.Bar, opts backtest.Options) {
	grid, err := parseGrid(gridFlag)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if len(grid) == 0 {
		log.Fatalf("❌ grid mode needs -grid, e.g. -grid \"lookback=20|50,z_threshold=1|1.5\"")
	}

	factory := func(params strategy.Params) strategy.Strategy {
		strat, err := strategy.Default.Create(cfg.Run.Strategy, params)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		return strat
	}

	startedAt := time.Now()
	result, err := backtest.GridSearch(factory, bars, grid, objective, opts)
	status := "completed"
	if err != nil {
		status = "failed"
		monitoring.RecordError("grid")
	}
	monitoring.RecordRun("grid", status, time.Since(startedAt).Seconds())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	reporting.PrintGridResults(result, 10)

	writer, err := storage.NewArtifactWriter(cfg.Run.ArtifactsDir)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	jobID := uuid.NewString()
	manifest := storage.Manifest{
		JobID:     jobID,
		Kind:      "grid",
		CreatedAt: time.Now(),
	}
	for _, point := range result.Results {
		manifest.Entries = append(manifest.Entries, storage.ManifestEntry{
			RunID:   jobID,
			Label:   "combo",
			Params:  point.Params,
			Metrics: point.Metrics,
		})
	}
	if err := writer.WriteManifest(manifest); err != nil {
		log.Fatalf("❌ %v", err)
	}
	bestPath := writer.RunDir(jobID) + "/best.json"
	if err := reporting.WriteBestConfigJSON(result, bestPath); err != nil {
		log.Fatalf("❌ %v", err)
	}
	fmt.Printf("📁 Grid artifacts: %s\n", writer.RunDir(jobID))
}

func runWalkForward(cfg *config.Config, params strategy.Params, bars []types.Bar, opts backtest.Options, trainWindow, testWindow, step int) {
	factory := func() strategy.Strategy {
		strat, err := strategy.Default.Create(cfg.Run.Strategy, params)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		return strat
	}

	startedAt := time.Now()
	windows, err := backtest.WalkForward(bars, factory, trainWindow, testWindow, step, opts)
	status := "completed"
	if err != nil {
		status = "failed"
		monitoring.RecordError("walkforward")
	}
	monitoring.RecordRun("walkforward", status, time.Since(startedAt).Seconds())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if len(windows) == 0 {
		fmt.Println("⚠️ Not enough bars for a single walk-forward window")
		return
	}
	reporting.PrintWalkForward(windows)
}

// parseParams parses "k=v,k=v" into params.
func parseParams(raw string, params strategy.Params) error {
	if raw == "" {
		return nil
	}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("bad param %q, want k=v", pair)
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("bad param value %q: %w", pair, err)
		}
		params[strings.TrimSpace(key)] = parsed
	}
	return nil
}

// parseGrid parses "k=v1|v2,k=v3" into a grid.
func parseGrid(raw string) (backtest.ParamGrid, error) {
	grid := backtest.ParamGrid{}
	if raw == "" {
		return grid, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		key, values, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("bad grid entry %q, want k=v1|v2", pair)
		}
		for _, value := range strings.Split(values, "|") {
			parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return nil, fmt.Errorf("bad grid value %q: %w", pair, err)
			}
			key := strings.TrimSpace(key)
			grid[key] = append(grid[key], parsed)
		}
	}
	return grid, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
	}
}
