package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage/memory"
)

const dailyCSV = `ticker,date,open,high,low,close,volume,ema17,ema72,trend,peak,target_buy_price,stop_loss
PETR4,2019-03-04,10.00,10.50,9.80,10.20,1500000,10.10,9.90,UPTREND,,10.30,9.70
PETR4,2019-03-05,10.20,10.80,10.10,10.70,1600000,10.20,9.95,UPTREND,10.80,,
`

const weeklyCSV = `ticker,week_end,open,high,low,close,volume,ema72
PETR4,2019-03-01,9.50,10.10,9.40,10.00,7200000,9.60
`

const riskBandCSV = `ticker,date,min_risk,max_risk,uptrend,downtrend,crisis
PETR4,2019-03-04,0.02,0.08,true,false,false
`

func TestReadDailyCandles(t *testing.T) {
	candles, err := ReadDailyCandles(strings.NewReader(dailyCSV))
	if err != nil {
		t.Fatalf("ReadDailyCandles failed: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}

	c := candles[0]
	if c.Ticker != "PETR4" {
		t.Errorf("ticker = %q", c.Ticker)
	}
	if !c.Date.Equal(time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", c.Date)
	}
	if c.Open != 10.00 || c.High != 10.50 || c.Low != 9.80 || c.Close != 10.20 {
		t.Errorf("ohlc = %v %v %v %v", c.Open, c.High, c.Low, c.Close)
	}
	if c.Trend != domain.TrendUptrend {
		t.Errorf("trend = %v", c.Trend)
	}
	// Empty peak cell means undefined.
	if c.Peak != 0 {
		t.Errorf("peak = %v, want 0", c.Peak)
	}
	if c.TargetBuyPrice != 10.30 || c.StopLoss != 9.70 {
		t.Errorf("hints = %v %v", c.TargetBuyPrice, c.StopLoss)
	}

	// Second row has a peak but no entry hints.
	if candles[1].Peak != 10.80 {
		t.Errorf("peak = %v, want 10.80", candles[1].Peak)
	}
	if candles[1].TargetBuyPrice != 0 || candles[1].StopLoss != 0 {
		t.Errorf("hints = %v %v, want undefined", candles[1].TargetBuyPrice, candles[1].StopLoss)
	}
}

func TestReadDailyCandles_BadHeader(t *testing.T) {
	_, err := ReadDailyCandles(strings.NewReader("ticker,date\nPETR4,2019-03-04\n"))
	if err == nil {
		t.Fatal("expected a header error")
	}
}

func TestReadDailyCandles_BadDate(t *testing.T) {
	bad := strings.Replace(dailyCSV, "2019-03-04", "04/03/2019", 1)
	_, err := ReadDailyCandles(strings.NewReader(bad))
	if err == nil {
		t.Fatal("expected a date parse error")
	}
}

func TestReadWeeklyCandles(t *testing.T) {
	candles, err := ReadWeeklyCandles(strings.NewReader(weeklyCSV))
	if err != nil {
		t.Fatalf("ReadWeeklyCandles failed: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(candles))
	}
	if candles[0].EMA72 != 9.60 {
		t.Errorf("ema72 = %v", candles[0].EMA72)
	}
	if !candles[0].WeekEnd.Equal(time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("week end = %v", candles[0].WeekEnd)
	}
}

func TestReadIndexPoints(t *testing.T) {
	points, err := ReadIndexPoints(strings.NewReader("date,value\n2019-03-04,94500.5\n2019-03-05,95100.0\n"), domain.IndexIBOV)
	if err != nil {
		t.Fatalf("ReadIndexPoints failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Index != domain.IndexIBOV || points[0].Value != 94500.5 {
		t.Errorf("point = %+v", points[0])
	}
}

func TestReadHolidays(t *testing.T) {
	dates, err := ReadHolidays(strings.NewReader("date\n2019-03-04\n2019-03-05\n"))
	if err != nil {
		t.Fatalf("ReadHolidays failed: %v", err)
	}
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %d", len(dates))
	}
}

func TestReadRiskBands(t *testing.T) {
	bands, err := ReadRiskBands(strings.NewReader(riskBandCSV))
	if err != nil {
		t.Fatalf("ReadRiskBands failed: %v", err)
	}
	if len(bands) != 1 {
		t.Fatalf("expected 1 band, got %d", len(bands))
	}
	b := bands[0]
	if b.MinRisk != 0.02 || b.MaxRisk != 0.08 {
		t.Errorf("risks = %v %v", b.MinRisk, b.MaxRisk)
	}
	if !b.Uptrend || b.Downtrend || b.Crisis {
		t.Errorf("flags = %v %v %v", b.Uptrend, b.Downtrend, b.Crisis)
	}
	if !b.Valid() {
		t.Error("band must be valid")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		DailyFile:    dailyCSV,
		WeeklyFile:   weeklyCSV,
		IBOVFile:     "date,value\n2019-03-04,94500.5\n",
		CDIFile:      "date,value\n2019-03-04,100.0\n",
		HolidaysFile: "date\n2019-04-19\n",
		RiskBandFile: riskBandCSV,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	candleStore := memory.NewCandleStore()
	holidayStore := memory.NewHolidayStore()
	indexStore := memory.NewIndexStore()
	bandStore := memory.NewRiskBandStore()

	counts, err := LoadDir(context.Background(), dir, Stores{
		Candles:   candleStore,
		Holidays:  holidayStore,
		Indexes:   indexStore,
		RiskBands: bandStore,
	})
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	if counts.DailyCandles != 2 || counts.WeeklyCandles != 1 {
		t.Errorf("candle counts = %+v", counts)
	}
	if counts.IndexPoints != 2 || counts.Holidays != 1 || counts.RiskBands != 1 {
		t.Errorf("counts = %+v", counts)
	}

	start := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2019, 3, 10, 0, 0, 0, 0, time.UTC)
	daily, err := candleStore.GetDailyByRange(context.Background(), []string{"PETR4"}, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(daily) != 2 {
		t.Errorf("expected 2 stored daily candles, got %d", len(daily))
	}
}

func TestLoadDir_OptionalFilesMissing(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		DailyFile:  dailyCSV,
		WeeklyFile: weeklyCSV,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := LoadDir(context.Background(), dir, Stores{
		Candles:   memory.NewCandleStore(),
		Holidays:  memory.NewHolidayStore(),
		Indexes:   memory.NewIndexStore(),
		RiskBands: memory.NewRiskBandStore(),
	})
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if counts.IndexPoints != 0 || counts.Holidays != 0 || counts.RiskBands != 0 {
		t.Errorf("optional counts = %+v, want zeros", counts)
	}
}

func TestLoadDir_MissingRequiredFile(t *testing.T) {
	_, err := LoadDir(context.Background(), t.TempDir(), Stores{Candles: memory.NewCandleStore()})
	if err == nil {
		t.Fatal("expected an error for missing daily candles")
	}
}
