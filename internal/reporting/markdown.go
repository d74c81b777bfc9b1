package reporting

import (
	"fmt"
	"strings"
	"time"

	"b3-swing-lab/internal/domain"
)

// RenderMarkdown renders a report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Backtest Report: %s\n\n", r.StrategyID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Performance
	sb.WriteString("## Performance\n\n")
	if len(r.Summaries) > 0 {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		for _, s := range r.Summaries {
			writeSummaryRows(&sb, s)
		}
	} else {
		sb.WriteString("No summary available.\n")
	}
	sb.WriteString("\n")

	// Operations
	sb.WriteString("## Operations\n\n")
	if len(r.Operations) > 0 {
		sb.WriteString("| Ticker | State | Start | End | Profit | Yield | Legs |\n")
		sb.WriteString("|--------|-------|-------|-----|--------|-------|------|\n")
		for _, op := range r.Operations {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f | %.4f | %d |\n",
				op.Ticker, op.State,
				formatDate(op.StartDate), formatDate(op.EndDate),
				op.Profit, op.Yield, len(op.Legs)))
		}
	} else {
		sb.WriteString("No operations recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func writeSummaryRows(sb *strings.Builder, s *domain.Summary) {
	prefix := ""
	if s.Ticker != "ALL" {
		prefix = s.Ticker + " "
	}

	fmt.Fprintf(sb, "| %sPeriod | %s to %s |\n", prefix,
		s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"))
	fmt.Fprintf(sb, "| %sTotal Capital | %.2f |\n", prefix, s.TotalCapital)
	fmt.Fprintf(sb, "| %sProfit | %.2f |\n", prefix, s.Profit)
	fmt.Fprintf(sb, "| %sYield | %.4f |\n", prefix, s.Yield)
	fmt.Fprintf(sb, "| %sAnnualized Yield | %.4f |\n", prefix, s.AnnualizedYield)
	fmt.Fprintf(sb, "| %sIBOV Yield | %.4f (annualized %.4f) |\n", prefix, s.IBOVYield, s.AnnualizedIBOVYield)
	fmt.Fprintf(sb, "| %sCDI Yield | %.4f (annualized %.4f) |\n", prefix, s.CDIYield, s.AnnualizedCDIYield)
	fmt.Fprintf(sb, "| %sBaseline Yield | %.4f (annualized %.4f) |\n", prefix, s.BaselineYield, s.AnnualizedBaselineYield)
	fmt.Fprintf(sb, "| %sVolatility | %.6f (annualized %.6f) |\n", prefix, s.Volatility, s.AnnualizedVolatility)
	fmt.Fprintf(sb, "| %sSharpe Ratio | %.4f |\n", prefix, s.SharpeRatio)
	fmt.Fprintf(sb, "| %sSortino Ratio | %.4f |\n", prefix, s.SortinoRatio)
	fmt.Fprintf(sb, "| %sPearson vs IBOV | %.4f |\n", prefix, s.PearsonIBOV)
	fmt.Fprintf(sb, "| %sSpearman vs IBOV | %.4f |\n", prefix, s.SpearmanIBOV)
	fmt.Fprintf(sb, "| %sPearson vs Baseline | %.4f |\n", prefix, s.PearsonBaseline)
	fmt.Fprintf(sb, "| %sSpearman vs Baseline | %.4f |\n", prefix, s.SpearmanBaseline)
	fmt.Fprintf(sb, "| %sMax Used Capital | %.4f |\n", prefix, s.MaxUsedCapital)
	fmt.Fprintf(sb, "| %sAvg Used Capital | %.4f |\n", prefix, s.AvgUsedCapital)
	fmt.Fprintf(sb, "| %sOperations | %d (%d successful) |\n", prefix, s.OperationCount, s.SuccessfulCount)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
