package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"b3-swing-lab/internal/calendar"
	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// Input is everything a statistics computation needs besides the stores.
type Input struct {
	StrategyID   string
	TotalCapital float64
	Tickers      []string
	Start        time.Time
	End          time.Time

	// Operations is the full archive of a run: closed operations plus any
	// trailing open ones, which contribute mark-to-market value.
	Operations []*domain.OperationRecord
}

// Report is the statistics output: the aggregate summary plus the daily
// equity curve behind it.
type Report struct {
	Summary *domain.Summary
	Equity  []domain.EquityPoint
}

// position tracks one operation's open inventory during the replay.
type position struct {
	ticker    string
	volume    int64
	costBasis float64
	lastClose float64
}

// Compute replays the operation archive against the close-price stream and
// derives the performance summary. The replay is deterministic: legs apply
// on their recorded dates and open inventory is marked to the day's close.
func Compute(ctx context.Context, candles storage.CandleStore, holidays storage.HolidayStore, indexes storage.IndexStore, in Input) (*Report, error) {
	holidayDates, err := holidays.GetByRange(ctx, in.Start, in.End)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	days := calendar.New(holidayDates).Range(in.Start, in.End)

	daily, err := candles.GetDailyByRange(ctx, in.Tickers, in.Start, in.End)
	if err != nil {
		return nil, fmt.Errorf("load daily candles: %w", err)
	}
	closes := make(map[string]map[string]float64, len(in.Tickers))
	for _, c := range daily {
		m := closes[c.Ticker]
		if m == nil {
			m = make(map[string]float64)
			closes[c.Ticker] = m
		}
		m[dayKey(c.Date)] = c.Close
	}

	ibov, err := indexLevels(ctx, indexes, domain.IndexIBOV, days)
	if err != nil {
		return nil, err
	}
	cdi, err := indexLevels(ctx, indexes, domain.IndexCDI, days)
	if err != nil {
		return nil, err
	}

	// Legs grouped by execution day.
	type legEvent struct {
		rec *domain.OperationRecord
		leg *domain.OperationLeg
	}
	legsByDay := make(map[string][]legEvent)
	for _, rec := range in.Operations {
		for _, leg := range rec.Legs {
			k := dayKey(leg.Date)
			legsByDay[k] = append(legsByDay[k], legEvent{rec: rec, leg: leg})
		}
	}

	cash := in.TotalCapital
	positions := make(map[string]*position) // operation id -> inventory
	lastClose := make(map[string]float64)

	equity := make([]domain.EquityPoint, 0, len(days))
	capital := make([]float64, 0, len(days))
	baseline := make([]float64, 0, len(days))
	baselineLevel := in.TotalCapital

	for i, day := range days {
		k := dayKey(day)

		for _, ev := range legsByDay[k] {
			p := positions[ev.rec.OperationID]
			switch ev.leg.Side {
			case domain.LegBuy:
				if p == nil {
					p = &position{ticker: ev.rec.Ticker}
					positions[ev.rec.OperationID] = p
				}
				p.volume += ev.leg.Volume
				p.costBasis += ev.leg.Price * float64(ev.leg.Volume)
				cash -= ev.leg.Price * float64(ev.leg.Volume)
			case domain.LegSell:
				if p == nil {
					continue
				}
				if p.volume > 0 {
					avg := p.costBasis / float64(p.volume)
					p.costBasis -= avg * float64(ev.leg.Volume)
				}
				p.volume -= ev.leg.Volume
				cash += ev.leg.Price * float64(ev.leg.Volume)
				if p.volume <= 0 {
					delete(positions, ev.rec.OperationID)
				}
			}
		}

		// Mark open inventory to the day's close, carrying the last seen
		// close through gaps.
		var mtm, committed float64
		active := 0
		for _, p := range positions {
			if c, ok := closes[p.ticker][k]; ok {
				p.lastClose = c
				lastClose[p.ticker] = c
			} else if c, ok := lastClose[p.ticker]; ok {
				p.lastClose = c
			}
			mtm += p.lastClose * float64(p.volume)
			committed += p.costBasis
			active++
		}
		for t, m := range closes {
			if c, ok := m[k]; ok {
				lastClose[t] = c
			}
		}

		if i > 0 {
			baselineLevel *= 1 + baselineReturn(in.Tickers, closes, days[i-1], day)
		}

		total := cash + mtm
		capitalInUse := 0.0
		if in.TotalCapital > 0 {
			capitalInUse = committed / in.TotalCapital
		}

		equity = append(equity, domain.EquityPoint{
			Date:             day,
			Capital:          total,
			CapitalInUse:     capitalInUse,
			ActiveOperations: active,
			Baseline:         baselineLevel,
			IBOV:             ibov[i],
			CDI:              cdi[i],
		})
		capital = append(capital, total)
		baseline = append(baseline, baselineLevel)
	}

	summary := summarize(in, equity, capital, baseline, ibov, cdi)
	return &Report{Summary: summary, Equity: equity}, nil
}

// baselineReturn is the equal-weight mean of per-ticker daily returns, with
// tickers missing either close contributing nothing.
func baselineReturn(tickers []string, closes map[string]map[string]float64, prev, day time.Time) float64 {
	pk, dk := dayKey(prev), dayKey(day)
	var sum float64
	var n int
	for _, t := range tickers {
		m := closes[t]
		if m == nil {
			continue
		}
		p, okP := m[pk]
		c, okC := m[dk]
		if !okP || !okC || p == 0 {
			continue
		}
		sum += c/p - 1
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func summarize(in Input, equity []domain.EquityPoint, capital, baseline, ibov, cdi []float64) *domain.Summary {
	s := &domain.Summary{
		StrategyID:   in.StrategyID,
		Ticker:       "ALL",
		StartDate:    in.Start,
		EndDate:      in.End,
		TotalCapital: in.TotalCapital,
	}

	for _, rec := range in.Operations {
		s.OperationCount++
		if rec.State == domain.OperationClose {
			s.Profit += rec.Profit
			if rec.Profit > 0 {
				s.SuccessfulCount++
			}
		}
	}
	s.Profit = math.Round(s.Profit*100) / 100

	if len(equity) == 0 {
		return s
	}

	maxUsed, sumUsed := 0.0, 0.0
	for _, p := range equity {
		if p.CapitalInUse > maxUsed {
			maxUsed = p.CapitalInUse
		}
		sumUsed += p.CapitalInUse
	}
	s.MaxUsedCapital = maxUsed
	s.AvgUsedCapital = sumUsed / float64(len(equity))

	days := len(equity) - 1
	if days < 1 {
		return s
	}

	retStrategy := dailyReturns(capital)
	retIBOV := dailyReturns(ibov)
	retCDI := dailyReturns(cdi)
	retBaseline := dailyReturns(baseline)

	if in.TotalCapital > 0 {
		s.Yield = capital[len(capital)-1]/in.TotalCapital - 1
	}
	s.AnnualizedYield = AnnualizedYield(s.Yield, days)
	s.IBOVYield = periodYield(ibov)
	s.AnnualizedIBOVYield = AnnualizedYield(s.IBOVYield, days)
	s.CDIYield = periodYield(cdi)
	s.AnnualizedCDIYield = AnnualizedYield(s.CDIYield, days)
	s.BaselineYield = periodYield(baseline)
	s.AnnualizedBaselineYield = AnnualizedYield(s.BaselineYield, days)

	s.Volatility = stat.StdDev(retStrategy, nil)
	if math.IsNaN(s.Volatility) {
		s.Volatility = 0
	}
	s.AnnualizedVolatility = s.Volatility * math.Sqrt(tradingDaysPerYear)

	s.SharpeRatio = SharpeRatio(retStrategy, retCDI)
	s.SortinoRatio = SortinoRatio(retStrategy, retCDI)

	s.PearsonIBOV = Pearson(retStrategy, retIBOV)
	s.SpearmanIBOV = Spearman(retStrategy, retIBOV)
	s.PearsonBaseline = Pearson(retStrategy, retBaseline)
	s.SpearmanBaseline = Spearman(retStrategy, retBaseline)

	return s
}

func periodYield(levels []float64) float64 {
	if len(levels) < 2 || levels[0] == 0 {
		return 0
	}
	return levels[len(levels)-1]/levels[0] - 1
}

// indexLevels resolves one benchmark to a per-business-day level series,
// forward-filling gaps and backfilling leading days from the first point.
func indexLevels(ctx context.Context, indexes storage.IndexStore, index string, days []time.Time) ([]float64, error) {
	if len(days) == 0 {
		return nil, nil
	}

	points, err := indexes.GetByRange(ctx, index, days[0], days[len(days)-1])
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", index, err)
	}

	byDay := make(map[string]float64, len(points))
	for _, p := range points {
		byDay[dayKey(p.Date)] = p.Value
	}

	out := make([]float64, len(days))
	var last float64
	if len(points) > 0 {
		last = points[0].Value
	}
	for i, day := range days {
		if v, ok := byDay[dayKey(day)]; ok {
			last = v
		}
		out[i] = last
	}
	return out, nil
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
