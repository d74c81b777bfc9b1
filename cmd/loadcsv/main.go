package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"b3-swing-lab/internal/config"
	"b3-swing-lab/internal/marketdata"
	chstore "b3-swing-lab/internal/storage/clickhouse"
	"b3-swing-lab/internal/storage/migrations"
	pgstore "b3-swing-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (required)")
	dataDir := flag.String("data", "", "Directory of CSV market data to load (required)")
	flag.Parse()

	logger := log.New(os.Stderr, "[loadcsv] ", log.LstdFlags)

	if *configPath == "" {
		logger.Fatal("--config is required")
	}
	if *dataDir == "" {
		logger.Fatal("--data is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if cfg.Storage.PostgresDSN == "" || cfg.Storage.ClickhouseDSN == "" {
		logger.Fatal("storage.postgres_dsn and storage.clickhouse_dsn are required")
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

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("postgres migrations: %v", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		logger.Fatalf("clickhouse migrations: %v", err)
	}
	defer conn.Close()

	counts, err := marketdata.LoadDir(ctx, *dataDir, marketdata.Stores{
		Candles:   chstore.NewCandleStore(conn),
		Holidays:  pgstore.NewHolidayStore(pool),
		Indexes:   chstore.NewIndexStore(conn),
		RiskBands: pgstore.NewRiskBandStore(pool),
	})
	if err != nil {
		logger.Fatalf("load market data: %v", err)
	}

	fmt.Println("Market data loaded:")
	fmt.Printf("  Daily candles:   %d\n", counts.DailyCandles)
	fmt.Printf("  Weekly candles:  %d\n", counts.WeeklyCandles)
	fmt.Printf("  Index points:    %d\n", counts.IndexPoints)
	fmt.Printf("  Holidays:        %d\n", counts.Holidays)
	fmt.Printf("  Risk bands:      %d\n", counts.RiskBands)
}
