package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"b3-swing-lab/internal/config"
	"b3-swing-lab/internal/reporting"
	"b3-swing-lab/internal/storage/migrations"
	pgstore "b3-swing-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (required)")
	strategyID := flag.String("strategy-id", "", "Strategy run to report on (defaults to the configured strategy id)")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *configPath == "" {
		logger.Fatal("--config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if cfg.Storage.PostgresDSN == "" {
		logger.Fatal("storage.postgres_dsn is required: reports read persisted run results")
	}

	id := *strategyID
	if id == "" {
		id = cfg.Strategy.ID
	}
	if id == "" {
		logger.Fatal("--strategy-id or strategy.id is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("postgres migrations: %v", err)
	}

	gen := reporting.NewGenerator(pgstore.NewOperationStore(pool), pgstore.NewSummaryStore(pool))
	report, err := gen.Generate(ctx, id)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}
	if len(report.Summaries) == 0 && len(report.Operations) == 0 {
		logger.Fatalf("no persisted results for strategy %q", id)
	}

	outputDir := cfg.Report.OutputDir
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logger.Fatalf("create output dir: %v", err)
	}

	files := map[string]string{
		"REPORT.md":      reporting.RenderMarkdown(report),
		"OPERATIONS.csv": reporting.RenderOperationsCSV(report),
		"SUMMARY.csv":    reporting.RenderSummariesCSV(report),
	}
	for name, content := range files {
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			logger.Fatalf("write %s: %v", path, err)
		}
	}

	fmt.Println("Report generated successfully:")
	fmt.Printf("  - %s/REPORT.md\n", outputDir)
	fmt.Printf("  - %s/OPERATIONS.csv\n", outputDir)
	fmt.Printf("  - %s/SUMMARY.csv\n", outputDir)
}
