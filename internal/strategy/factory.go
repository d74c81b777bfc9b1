package strategy

import "fmt"

// FromConfig builds the strategy variant the configuration names. All
// parameter violations surface here, before any data is touched.
func FromConfig(cfg Config, deps Deps) (Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Variant {
	case VariantAndreMoraes:
		return newEngine(cfg, deps, newMoraesRules(&cfg)), nil

	case VariantMLDerivation:
		if deps.RiskBands == nil {
			return nil, ErrMissingRiskBandStore
		}
		for _, tw := range cfg.Tickers {
			if deps.Models[tw.Ticker] == nil {
				return nil, fmt.Errorf("%w: %s", ErrMissingModels, tw.Ticker)
			}
		}
		return newEngine(cfg, deps, newMLRules(&cfg, deps.RiskBands, deps.Models)), nil

	default:
		return nil, ErrUnknownVariant
	}
}
