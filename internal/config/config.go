package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"b3-swing-lab/internal/model"
	"b3-swing-lab/internal/strategy"
)

const dateLayout = "2006-01-02"

// TickerWindow is one ticker's participation window in the run.
type TickerWindow struct {
	Ticker            string  `yaml:"ticker"`
	Start             string  `yaml:"start"`
	End               string  `yaml:"end"`
	CapitalMultiplier float64 `yaml:"capital_multiplier"`
}

// ModelWindow binds a classifier file to its validity cutoff.
type ModelWindow struct {
	ValidUntil string `yaml:"valid_until"`
	Path       string `yaml:"path"`
}

// ModelSchedule lists the walk-forward model windows for one ticker.
type ModelSchedule struct {
	Ticker  string        `yaml:"ticker"`
	Windows []ModelWindow `yaml:"windows"`
}

// Config holds all backtest run configuration.
type Config struct {
	Storage struct {
		// PostgresDSN and ClickhouseDSN select the persistent backends.
		// Both empty selects the in-memory stores.
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickhouseDSN string `yaml:"clickhouse_dsn"`
	} `yaml:"storage"`

	Strategy struct {
		ID                 string  `yaml:"id"`
		Variant            string  `yaml:"variant"`
		TotalCapital       float64 `yaml:"total_capital"`
		RiskCapitalProduct float64 `yaml:"risk_capital_product"`
		MinRiskPerTrade    float64 `yaml:"min_risk_per_trade"`
		MaxRiskPerTrade    float64 `yaml:"max_risk_per_trade"`
		PurchaseMargin     float64 `yaml:"purchase_margin"`
		StopMargin         float64 `yaml:"stop_margin"`
		EMATolerance       float64 `yaml:"ema_tolerance"`
		GainLossRatio      float64 `yaml:"gain_loss_ratio"`

		MaxDaysPerOperation             int `yaml:"max_days_per_operation"`
		MinDaysAfterSuccessfulOperation int `yaml:"min_days_after_successful_operation"`
		MinDaysAfterFailureOperation    int `yaml:"min_days_after_failure_operation"`

		MinOrderVolume int64  `yaml:"min_order_volume"`
		PartialSale    bool   `yaml:"partial_sale"`
		StopType       string `yaml:"stop_type"`

		ML struct {
			Lookbacks          []int   `yaml:"lookbacks"`
			SmoothingWindow    int     `yaml:"smoothing_window"`
			CrisisHalt         bool    `yaml:"crisis_halt"`
			DowntrendHalt      bool    `yaml:"downtrend_halt"`
			ControllerGain     float64 `yaml:"controller_gain"`
			TargetCapitalUsage float64 `yaml:"target_capital_usage"`
			CapitalUsageWindow int     `yaml:"capital_usage_window"`
			MinRCC             float64 `yaml:"min_rcc"`
			MaxRCC             float64 `yaml:"max_rcc"`

			FrequencyCompensation bool `yaml:"frequency_compensation"`
			ProfitCompensation    bool `yaml:"profit_compensation"`
			UptrendPriorityBonus  bool `yaml:"uptrend_priority_bonus"`
		} `yaml:"ml"`
	} `yaml:"strategy"`

	Tickers []TickerWindow  `yaml:"tickers"`
	Models  []ModelSchedule `yaml:"models"`

	Report struct {
		OutputDir string `yaml:"output_dir"`
	} `yaml:"report"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Environment variable overrides
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}

	// Defaults
	if cfg.Strategy.Variant == "" {
		cfg.Strategy.Variant = string(strategy.VariantAndreMoraes)
	}
	if cfg.Strategy.StopType == "" {
		cfg.Strategy.StopType = string(strategy.StopNormal)
	}
	if cfg.Strategy.MinOrderVolume == 0 {
		cfg.Strategy.MinOrderVolume = 100
	}
	if cfg.Strategy.MaxDaysPerOperation == 0 {
		cfg.Strategy.MaxDaysPerOperation = 66
	}
	if cfg.Report.OutputDir == "" {
		cfg.Report.OutputDir = "reports"
	}

	return cfg, nil
}

// StrategyConfig converts the file representation into the strategy's
// runtime configuration. Date parsing failures surface here.
func (c *Config) StrategyConfig() (strategy.Config, error) {
	sc := strategy.Config{
		StrategyID:         c.Strategy.ID,
		Variant:            strategy.Variant(c.Strategy.Variant),
		TotalCapital:       c.Strategy.TotalCapital,
		RiskCapitalProduct: c.Strategy.RiskCapitalProduct,
		MinRiskPerTrade:    c.Strategy.MinRiskPerTrade,
		MaxRiskPerTrade:    c.Strategy.MaxRiskPerTrade,
		PurchaseMargin:     c.Strategy.PurchaseMargin,
		StopMargin:         c.Strategy.StopMargin,
		EMATolerance:       c.Strategy.EMATolerance,
		GainLossRatio:      c.Strategy.GainLossRatio,

		MaxDaysPerOperation:             c.Strategy.MaxDaysPerOperation,
		MinDaysAfterSuccessfulOperation: c.Strategy.MinDaysAfterSuccessfulOperation,
		MinDaysAfterFailureOperation:    c.Strategy.MinDaysAfterFailureOperation,

		MinOrderVolume: c.Strategy.MinOrderVolume,
		PartialSale:    c.Strategy.PartialSale,
		StopType:       strategy.StopType(c.Strategy.StopType),

		ML: strategy.MLConfig{
			Lookbacks:          c.Strategy.ML.Lookbacks,
			SmoothingWindow:    c.Strategy.ML.SmoothingWindow,
			CrisisHalt:         c.Strategy.ML.CrisisHalt,
			DowntrendHalt:      c.Strategy.ML.DowntrendHalt,
			ControllerGain:     c.Strategy.ML.ControllerGain,
			TargetCapitalUsage: c.Strategy.ML.TargetCapitalUsage,
			CapitalUsageWindow: c.Strategy.ML.CapitalUsageWindow,
			MinRCC:             c.Strategy.ML.MinRCC,
			MaxRCC:             c.Strategy.ML.MaxRCC,

			FrequencyCompensation: c.Strategy.ML.FrequencyCompensation,
			ProfitCompensation:    c.Strategy.ML.ProfitCompensation,
			UptrendPriorityBonus:  c.Strategy.ML.UptrendPriorityBonus,
		},
	}

	for _, tw := range c.Tickers {
		start, err := time.Parse(dateLayout, tw.Start)
		if err != nil {
			return strategy.Config{}, fmt.Errorf("ticker %s: parse start: %w", tw.Ticker, err)
		}
		end, err := time.Parse(dateLayout, tw.End)
		if err != nil {
			return strategy.Config{}, fmt.Errorf("ticker %s: parse end: %w", tw.Ticker, err)
		}
		sc.Tickers = append(sc.Tickers, strategy.TickerWindow{
			Ticker:            tw.Ticker,
			Start:             start,
			End:               end,
			CapitalMultiplier: tw.CapitalMultiplier,
		})
	}

	return sc, nil
}

// LoadModels reads every classifier file the schedule section names and
// assembles per-ticker schedules.
func (c *Config) LoadModels() (map[string]*model.Schedule, error) {
	if len(c.Models) == 0 {
		return nil, nil
	}

	schedules := make(map[string]*model.Schedule, len(c.Models))
	for _, ms := range c.Models {
		var windows []model.Window
		for _, w := range ms.Windows {
			validUntil, err := time.Parse(dateLayout, w.ValidUntil)
			if err != nil {
				return nil, fmt.Errorf("model %s: parse valid_until: %w", ms.Ticker, err)
			}
			clf, err := model.LoadLinearClassifier(w.Path)
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", ms.Ticker, err)
			}
			windows = append(windows, model.Window{ValidUntil: validUntil, Model: clf})
		}
		sched, err := model.NewSchedule(windows)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", ms.Ticker, err)
		}
		schedules[ms.Ticker] = sched
	}

	return schedules, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Strategy.ID == "" {
		return fmt.Errorf("strategy.id is required")
	}
	if c.Strategy.TotalCapital <= 0 {
		return fmt.Errorf("strategy.total_capital must be positive")
	}
	if len(c.Tickers) == 0 {
		return fmt.Errorf("at least one ticker is required")
	}
	if (c.Storage.PostgresDSN == "") != (c.Storage.ClickhouseDSN == "") {
		return fmt.Errorf("storage.postgres_dsn and storage.clickhouse_dsn must be set together")
	}
	return nil
}
