package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"b3-swing-lab/internal/config"
	"b3-swing-lab/internal/marketdata"
	"b3-swing-lab/internal/observability"
	"b3-swing-lab/internal/stats"
	chstore "b3-swing-lab/internal/storage/clickhouse"
	"b3-swing-lab/internal/storage/memory"
	"b3-swing-lab/internal/storage/migrations"
	pgstore "b3-swing-lab/internal/storage/postgres"
	"b3-swing-lab/internal/strategy"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (required)")
	dataDir := flag.String("data", "", "Directory of CSV market data to load before the run (required with in-memory storage)")
	metricsAddr := flag.String("metrics-addr", "", "Address to serve Prometheus metrics on (optional)")
	outputJSON := flag.Bool("json", false, "Output summary as JSON")
	noSave := flag.Bool("no-save", false, "Skip persisting operations and summary")
	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *configPath == "" {
		logger.Fatal("--config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		go func() {
			logger.Printf("Serving metrics on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	deps, cleanup, err := buildDeps(ctx, cfg, *dataDir, logger)
	if err != nil {
		logger.Fatalf("wire storage: %v", err)
	}
	defer cleanup()

	sc, err := cfg.StrategyConfig()
	if err != nil {
		logger.Fatalf("build strategy config: %v", err)
	}
	deps.Models, err = cfg.LoadModels()
	if err != nil {
		logger.Fatalf("load models: %v", err)
	}

	strat, err := strategy.FromConfig(sc, deps)
	if err != nil {
		logger.Fatalf("build strategy: %v", err)
	}

	logger.Printf("Running backtest: strategy=%s variant=%s tickers=%d",
		sc.StrategyID, sc.Variant, len(sc.Tickers))

	runStart := time.Now()
	if err := strat.ProcessOperations(ctx); err != nil {
		observability.RecordRun(string(sc.Variant), "error", time.Since(runStart).Seconds())
		logger.Fatalf("backtest failed: %v", err)
	}

	report, err := strat.CalculateStatistics(ctx)
	if err != nil {
		observability.RecordRun(string(sc.Variant), "error", time.Since(runStart).Seconds())
		logger.Fatalf("compute statistics: %v", err)
	}

	if !*noSave {
		if err := strat.Save(ctx); err != nil {
			logger.Fatalf("persist results: %v", err)
		}
	}
	observability.RecordRun(string(sc.Variant), "ok", time.Since(runStart).Seconds())

	if *outputJSON {
		output, _ := json.MarshalIndent(report.Summary, "", "  ")
		fmt.Println(string(output))
	} else {
		printSummary(report)
	}
}

// buildDeps wires the configured storage backends, loading CSV data into the
// in-memory stores when no DSNs are set.
func buildDeps(ctx context.Context, cfg *config.Config, dataDir string, logger *log.Logger) (strategy.Deps, func(), error) {
	if cfg.Storage.PostgresDSN == "" {
		if dataDir == "" {
			return strategy.Deps{}, nil, fmt.Errorf("--data is required with in-memory storage")
		}

		deps := strategy.Deps{
			Candles:    memory.NewCandleStore(),
			Holidays:   memory.NewHolidayStore(),
			Indexes:    memory.NewIndexStore(),
			RiskBands:  memory.NewRiskBandStore(),
			Operations: memory.NewOperationStore(),
			Summaries:  memory.NewSummaryStore(),
		}

		counts, err := marketdata.LoadDir(ctx, dataDir, marketdata.Stores{
			Candles:   deps.Candles,
			Holidays:  deps.Holidays,
			Indexes:   deps.Indexes,
			RiskBands: deps.RiskBands,
		})
		if err != nil {
			return strategy.Deps{}, nil, fmt.Errorf("load market data: %w", err)
		}
		logger.Printf("Loaded market data: %d daily, %d weekly, %d index points, %d holidays, %d risk bands",
			counts.DailyCandles, counts.WeeklyCandles, counts.IndexPoints, counts.Holidays, counts.RiskBands)

		return deps, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return strategy.Deps{}, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return strategy.Deps{}, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return strategy.Deps{}, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	deps := strategy.Deps{
		Candles:    chstore.NewCandleStore(conn),
		Holidays:   pgstore.NewHolidayStore(pool),
		Indexes:    chstore.NewIndexStore(conn),
		RiskBands:  pgstore.NewRiskBandStore(pool),
		Operations: pgstore.NewOperationStore(pool),
		Summaries:  pgstore.NewSummaryStore(pool),
	}

	cleanup := func() {
		pool.Close()
		conn.Close()
	}

	// Optional seed of the persistent stores from a CSV directory.
	if dataDir != "" {
		counts, err := marketdata.LoadDir(ctx, dataDir, marketdata.Stores{
			Candles:   deps.Candles,
			Holidays:  deps.Holidays,
			Indexes:   deps.Indexes,
			RiskBands: deps.RiskBands,
		})
		if err != nil {
			cleanup()
			return strategy.Deps{}, nil, fmt.Errorf("load market data: %w", err)
		}
		logger.Printf("Loaded market data: %d daily, %d weekly, %d index points, %d holidays, %d risk bands",
			counts.DailyCandles, counts.WeeklyCandles, counts.IndexPoints, counts.Holidays, counts.RiskBands)
	}

	return deps, cleanup, nil
}

// printSummary outputs a human-readable run summary.
func printSummary(report *stats.Report) {
	s := report.Summary

	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Strategy:           %s\n", s.StrategyID)
	fmt.Printf("Period:             %s to %s\n",
		s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"))
	fmt.Println()

	fmt.Println("Capital:")
	fmt.Printf("  Total:            %.2f\n", s.TotalCapital)
	fmt.Printf("  Profit:           %.2f\n", s.Profit)
	fmt.Printf("  Max Used:         %.2f%%\n", s.MaxUsedCapital*100)
	fmt.Printf("  Avg Used:         %.2f%%\n", s.AvgUsedCapital*100)
	fmt.Println()

	fmt.Println("Yield:")
	fmt.Printf("  Strategy:         %.2f%% (annualized %.2f%%)\n", s.Yield*100, s.AnnualizedYield*100)
	fmt.Printf("  IBOV:             %.2f%% (annualized %.2f%%)\n", s.IBOVYield*100, s.AnnualizedIBOVYield*100)
	fmt.Printf("  CDI:              %.2f%% (annualized %.2f%%)\n", s.CDIYield*100, s.AnnualizedCDIYield*100)
	fmt.Printf("  Baseline:         %.2f%% (annualized %.2f%%)\n", s.BaselineYield*100, s.AnnualizedBaselineYield*100)
	fmt.Println()

	fmt.Println("Risk:")
	fmt.Printf("  Volatility:       %.4f (annualized %.4f)\n", s.Volatility, s.AnnualizedVolatility)
	fmt.Printf("  Sharpe Ratio:     %.4f\n", s.SharpeRatio)
	fmt.Printf("  Sortino Ratio:    %.4f\n", s.SortinoRatio)
	fmt.Printf("  Pearson/IBOV:     %.4f\n", s.PearsonIBOV)
	fmt.Printf("  Spearman/IBOV:    %.4f\n", s.SpearmanIBOV)
	fmt.Println()

	fmt.Println("Operations:")
	fmt.Printf("  Count:            %d\n", s.OperationCount)
	fmt.Printf("  Successful:       %d\n", s.SuccessfulCount)
}
