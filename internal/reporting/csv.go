package reporting

import (
	"fmt"
	"strings"
)

// RenderOperationsCSV renders the report's operations as CSV, one row per
// executed leg so the full lifecycle is visible.
func RenderOperationsCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("operation_id,ticker,state,seq,side,price,volume,date,stop_loss,partial_sale,timeout\n")
	for _, op := range r.Operations {
		for _, leg := range op.Legs {
			sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%s,%.2f,%d,%s,%t,%t,%t\n",
				op.OperationID, op.Ticker, op.State,
				leg.Seq, leg.Side, leg.Price, leg.Volume,
				leg.Date.Format("2006-01-02"),
				leg.StopLoss, leg.PartialSale, leg.Timeout))
		}
	}

	return sb.String()
}

// RenderSummariesCSV renders the report's summaries as CSV.
func RenderSummariesCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("strategy_id,ticker,start_date,end_date,total_capital,profit," +
		"yield,annualized_yield,ibov_yield,cdi_yield,baseline_yield," +
		"volatility,annualized_volatility,sharpe_ratio,sortino_ratio," +
		"max_used_capital,avg_used_capital,operation_count,successful_count\n")
	for _, s := range r.Summaries {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.2f,%.2f,%.4f,%.4f,%.4f,%.4f,%.4f,%.6f,%.6f,%.4f,%.4f,%.4f,%.4f,%d,%d\n",
			s.StrategyID, s.Ticker,
			s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"),
			s.TotalCapital, s.Profit,
			s.Yield, s.AnnualizedYield, s.IBOVYield, s.CDIYield, s.BaselineYield,
			s.Volatility, s.AnnualizedVolatility, s.SharpeRatio, s.SortinoRatio,
			s.MaxUsedCapital, s.AvgUsedCapital,
			s.OperationCount, s.SuccessfulCount))
	}

	return sb.String()
}
