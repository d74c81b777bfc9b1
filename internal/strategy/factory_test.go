package strategy

import (
	"errors"
	"testing"
	"time"

	"b3-swing-lab/internal/model"
	"b3-swing-lab/internal/storage/memory"
)

func factoryDeps() Deps {
	return Deps{
		Candles:    memory.NewCandleStore(),
		Holidays:   memory.NewHolidayStore(),
		Indexes:    memory.NewIndexStore(),
		RiskBands:  memory.NewRiskBandStore(),
		Operations: memory.NewOperationStore(),
		Summaries:  memory.NewSummaryStore(),
	}
}

func TestFromConfig_AndreMoraes(t *testing.T) {
	cfg := baseConfig("TEST1", day(2019, time.March, 4), day(2019, time.March, 29))
	s, err := FromConfig(cfg, factoryDeps())
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if s == nil {
		t.Fatal("expected a strategy")
	}
}

func TestFromConfig_MLDerivation(t *testing.T) {
	cfg := mlConfig("TEST1", day(2019, time.March, 4), day(2019, time.March, 29))
	deps := factoryDeps()
	deps.Models = map[string]*model.Schedule{"TEST1": alwaysAcceptSchedule(t, 3)}

	if _, err := FromConfig(cfg, deps); err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
}

func TestFromConfig_Validation(t *testing.T) {
	base := func() Config {
		return baseConfig("TEST1", day(2019, time.March, 4), day(2019, time.March, 29))
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"unknown variant", func(c *Config) { c.Variant = "MYSTERY" }, ErrUnknownVariant},
		{"unknown stop type", func(c *Config) { c.StopType = "SOMETIMES" }, ErrUnknownStopType},
		{"zero capital", func(c *Config) { c.TotalCapital = 0 }, ErrInvalidTotalCapital},
		{"rcc above one", func(c *Config) { c.RiskCapitalProduct = 1.5 }, ErrInvalidRiskCapitalProduct},
		{"inverted risk bounds", func(c *Config) { c.MinRiskPerTrade = 0.2; c.MaxRiskPerTrade = 0.1 }, ErrInvalidRiskBounds},
		{"zero gain loss ratio", func(c *Config) { c.GainLossRatio = 0 }, ErrInvalidGainLossRatio},
		{"no tickers", func(c *Config) { c.Tickers = nil }, ErrNoTickers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			_, err := FromConfig(cfg, factoryDeps())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromConfig_MLRequirements(t *testing.T) {
	cfg := mlConfig("TEST1", day(2019, time.March, 4), day(2019, time.March, 29))

	deps := factoryDeps()
	deps.RiskBands = nil
	deps.Models = map[string]*model.Schedule{"TEST1": alwaysAcceptSchedule(t, 3)}
	if _, err := FromConfig(cfg, deps); !errors.Is(err, ErrMissingRiskBandStore) {
		t.Errorf("got %v, want ErrMissingRiskBandStore", err)
	}

	deps = factoryDeps()
	if _, err := FromConfig(cfg, deps); !errors.Is(err, ErrMissingModels) {
		t.Errorf("got %v, want ErrMissingModels", err)
	}

	bad := cfg
	bad.ML.TargetCapitalUsage = 0
	deps = factoryDeps()
	deps.Models = map[string]*model.Schedule{"TEST1": alwaysAcceptSchedule(t, 3)}
	if _, err := FromConfig(bad, deps); !errors.Is(err, ErrInvalidControllerTarget) {
		t.Errorf("got %v, want ErrInvalidControllerTarget", err)
	}
}
