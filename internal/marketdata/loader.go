package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// Well-known file names inside a data directory. Missing optional files are
// skipped; daily and weekly candles are required.
const (
	DailyFile    = "daily.csv"
	WeeklyFile   = "weekly.csv"
	IBOVFile     = "ibov.csv"
	CDIFile      = "cdi.csv"
	HolidaysFile = "holidays.csv"
	RiskBandFile = "risk_bands.csv"
)

// Stores groups the write targets of a load. Nil stores are skipped.
type Stores struct {
	Candles   storage.CandleStore
	Holidays  storage.HolidayStore
	Indexes   storage.IndexStore
	RiskBands storage.RiskBandStore
}

// Counts reports how many rows of each kind a load inserted.
type Counts struct {
	DailyCandles  int
	WeeklyCandles int
	IndexPoints   int
	Holidays      int
	RiskBands     int
}

// LoadDir reads every recognized CSV file in dir and bulk-inserts its rows.
func LoadDir(ctx context.Context, dir string, stores Stores) (Counts, error) {
	var counts Counts

	if stores.Candles != nil {
		daily, err := ReadDailyCandlesFile(filepath.Join(dir, DailyFile))
		if err != nil {
			return counts, err
		}
		if err := stores.Candles.InsertDailyBulk(ctx, daily); err != nil {
			return counts, fmt.Errorf("insert daily candles: %w", err)
		}
		counts.DailyCandles = len(daily)

		weekly, err := ReadWeeklyCandlesFile(filepath.Join(dir, WeeklyFile))
		if err != nil {
			return counts, err
		}
		if err := stores.Candles.InsertWeeklyBulk(ctx, weekly); err != nil {
			return counts, fmt.Errorf("insert weekly candles: %w", err)
		}
		counts.WeeklyCandles = len(weekly)
	}

	if stores.Indexes != nil {
		for _, idx := range []struct {
			file string
			name string
		}{
			{IBOVFile, domain.IndexIBOV},
			{CDIFile, domain.IndexCDI},
		} {
			points, err := ReadIndexPointsFile(filepath.Join(dir, idx.file), idx.name)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return counts, err
			}
			if err := stores.Indexes.InsertBulk(ctx, points); err != nil {
				return counts, fmt.Errorf("insert %s points: %w", idx.name, err)
			}
			counts.IndexPoints += len(points)
		}
	}

	if stores.Holidays != nil {
		dates, err := ReadHolidaysFile(filepath.Join(dir, HolidaysFile))
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return counts, err
		default:
			if err := stores.Holidays.InsertBulk(ctx, dates); err != nil {
				return counts, fmt.Errorf("insert holidays: %w", err)
			}
			counts.Holidays = len(dates)
		}
	}

	if stores.RiskBands != nil {
		bands, err := ReadRiskBandsFile(filepath.Join(dir, RiskBandFile))
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return counts, err
		default:
			if err := stores.RiskBands.InsertBulk(ctx, bands); err != nil {
				return counts, fmt.Errorf("insert risk bands: %w", err)
			}
			counts.RiskBands = len(bands)
		}
	}

	return counts, nil
}
