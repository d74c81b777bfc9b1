package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ComputeOperationID computes a deterministic operation_id using SHA256.
// Formula: SHA256(ticker|strategy_id|start_date)
// Returns hex-encoded hash (64 characters).
func ComputeOperationID(ticker, strategyID string, startDate time.Time) string {
	data := fmt.Sprintf("%s|%s|%s",
		ticker,
		strategyID,
		startDate.Format("2006-01-02"),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeSummaryID computes a deterministic summary_id using SHA256.
// Formula: SHA256(strategy_id|ticker|start_date|end_date)
func ComputeSummaryID(strategyID, ticker string, startDate, endDate time.Time) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		strategyID,
		ticker,
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
