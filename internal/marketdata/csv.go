// Package marketdata reads historical market data files into the storage
// layer. The expected files are CSV exports of the upstream feature
// pipeline, one file per series kind.
package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"b3-swing-lab/internal/domain"
)

const dateLayout = "2006-01-02"

// Expected CSV headers, one per series kind.
var (
	dailyHeader    = []string{"ticker", "date", "open", "high", "low", "close", "volume", "ema17", "ema72", "trend", "peak", "target_buy_price", "stop_loss"}
	weeklyHeader   = []string{"ticker", "week_end", "open", "high", "low", "close", "volume", "ema72"}
	indexHeader    = []string{"date", "value"}
	holidayHeader  = []string{"date"}
	riskBandHeader = []string{"ticker", "date", "min_risk", "max_risk", "uptrend", "downtrend", "crisis"}
)

// ReadDailyCandles parses a daily candle CSV stream.
func ReadDailyCandles(r io.Reader) ([]*domain.DailyCandle, error) {
	rows, err := readRows(r, dailyHeader)
	if err != nil {
		return nil, err
	}

	candles := make([]*domain.DailyCandle, 0, len(rows))
	for i, row := range rows {
		c := &domain.DailyCandle{Ticker: row[0]}
		if c.Date, err = time.Parse(dateLayout, row[1]); err != nil {
			return nil, fmt.Errorf("daily row %d: parse date: %w", i+2, err)
		}

		fields := []struct {
			dst *float64
			col int
		}{
			{&c.Open, 2}, {&c.High, 3}, {&c.Low, 4}, {&c.Close, 5},
			{&c.Volume, 6}, {&c.EMA17, 7}, {&c.EMA72, 8},
			{&c.Peak, 10}, {&c.TargetBuyPrice, 11}, {&c.StopLoss, 12},
		}
		for _, f := range fields {
			if *f.dst, err = parseFloat(row[f.col]); err != nil {
				return nil, fmt.Errorf("daily row %d: column %s: %w", i+2, dailyHeader[f.col], err)
			}
		}

		c.Trend = domain.ParseTrendStatus(strings.ToUpper(row[9]))
		candles = append(candles, c)
	}
	return candles, nil
}

// ReadWeeklyCandles parses a weekly candle CSV stream.
func ReadWeeklyCandles(r io.Reader) ([]*domain.WeeklyCandle, error) {
	rows, err := readRows(r, weeklyHeader)
	if err != nil {
		return nil, err
	}

	candles := make([]*domain.WeeklyCandle, 0, len(rows))
	for i, row := range rows {
		c := &domain.WeeklyCandle{Ticker: row[0]}
		if c.WeekEnd, err = time.Parse(dateLayout, row[1]); err != nil {
			return nil, fmt.Errorf("weekly row %d: parse week_end: %w", i+2, err)
		}

		fields := []struct {
			dst *float64
			col int
		}{
			{&c.Open, 2}, {&c.High, 3}, {&c.Low, 4}, {&c.Close, 5},
			{&c.Volume, 6}, {&c.EMA72, 7},
		}
		for _, f := range fields {
			if *f.dst, err = parseFloat(row[f.col]); err != nil {
				return nil, fmt.Errorf("weekly row %d: column %s: %w", i+2, weeklyHeader[f.col], err)
			}
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// ReadIndexPoints parses a benchmark index CSV stream. The index name comes
// from the caller because the file holds a single series.
func ReadIndexPoints(r io.Reader, index string) ([]*domain.IndexPoint, error) {
	rows, err := readRows(r, indexHeader)
	if err != nil {
		return nil, err
	}

	points := make([]*domain.IndexPoint, 0, len(rows))
	for i, row := range rows {
		p := &domain.IndexPoint{Index: index}
		if p.Date, err = time.Parse(dateLayout, row[0]); err != nil {
			return nil, fmt.Errorf("index row %d: parse date: %w", i+2, err)
		}
		if p.Value, err = parseFloat(row[1]); err != nil {
			return nil, fmt.Errorf("index row %d: parse value: %w", i+2, err)
		}
		points = append(points, p)
	}
	return points, nil
}

// ReadHolidays parses a holiday calendar CSV stream.
func ReadHolidays(r io.Reader) ([]time.Time, error) {
	rows, err := readRows(r, holidayHeader)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(rows))
	for i, row := range rows {
		d, err := time.Parse(dateLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("holiday row %d: parse date: %w", i+2, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// ReadRiskBands parses a risk band CSV stream.
func ReadRiskBands(r io.Reader) ([]*domain.RiskBand, error) {
	rows, err := readRows(r, riskBandHeader)
	if err != nil {
		return nil, err
	}

	bands := make([]*domain.RiskBand, 0, len(rows))
	for i, row := range rows {
		b := &domain.RiskBand{Ticker: row[0]}
		if b.Date, err = time.Parse(dateLayout, row[1]); err != nil {
			return nil, fmt.Errorf("risk band row %d: parse date: %w", i+2, err)
		}
		if b.MinRisk, err = parseFloat(row[2]); err != nil {
			return nil, fmt.Errorf("risk band row %d: parse min_risk: %w", i+2, err)
		}
		if b.MaxRisk, err = parseFloat(row[3]); err != nil {
			return nil, fmt.Errorf("risk band row %d: parse max_risk: %w", i+2, err)
		}
		if b.Uptrend, err = parseBool(row[4]); err != nil {
			return nil, fmt.Errorf("risk band row %d: parse uptrend: %w", i+2, err)
		}
		if b.Downtrend, err = parseBool(row[5]); err != nil {
			return nil, fmt.Errorf("risk band row %d: parse downtrend: %w", i+2, err)
		}
		if b.Crisis, err = parseBool(row[6]); err != nil {
			return nil, fmt.Errorf("risk band row %d: parse crisis: %w", i+2, err)
		}
		bands = append(bands, b)
	}
	return bands, nil
}

// ReadDailyCandlesFile reads a daily candle CSV file.
func ReadDailyCandlesFile(path string) ([]*domain.DailyCandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadDailyCandles(f)
}

// ReadWeeklyCandlesFile reads a weekly candle CSV file.
func ReadWeeklyCandlesFile(path string) ([]*domain.WeeklyCandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadWeeklyCandles(f)
}

// ReadIndexPointsFile reads a benchmark index CSV file.
func ReadIndexPointsFile(path, index string) ([]*domain.IndexPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadIndexPoints(f, index)
}

// ReadHolidaysFile reads a holiday calendar CSV file.
func ReadHolidaysFile(path string) ([]time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadHolidays(f)
}

// ReadRiskBandsFile reads a risk band CSV file.
func ReadRiskBandsFile(path string) ([]*domain.RiskBand, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadRiskBands(f)
}

// readRows validates the header row and returns the data rows.
func readRows(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	got, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file, expected header %s", strings.Join(header, ","))
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(got) != len(header) {
		return nil, fmt.Errorf("header has %d columns, expected %d (%s)", len(got), len(header), strings.Join(header, ","))
	}
	for i, name := range header {
		if strings.TrimSpace(strings.ToLower(got[i])) != name {
			return nil, fmt.Errorf("header column %d is %q, expected %q", i+1, got[i], name)
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}

// parseFloat parses a float column. An empty cell means 0 (undefined).
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseBool parses a boolean column. An empty cell means false.
func parseBool(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
