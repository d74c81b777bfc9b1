package idhash

import (
	"testing"
	"time"
)

func TestComputeOperationID_Deterministic(t *testing.T) {
	start := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)

	id1 := ComputeOperationID("PETR4", "moraes-v1", start)
	id2 := ComputeOperationID("PETR4", "moraes-v1", start)

	if id1 != id2 {
		t.Errorf("expected deterministic ID, got %s and %s", id1, id2)
	}
	if len(id1) != 64 {
		t.Errorf("expected 64-char hex ID, got %d chars", len(id1))
	}
}

func TestComputeOperationID_DistinctInputs(t *testing.T) {
	start := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)

	base := ComputeOperationID("PETR4", "moraes-v1", start)

	if ComputeOperationID("VALE3", "moraes-v1", start) == base {
		t.Error("different tickers must produce different IDs")
	}
	if ComputeOperationID("PETR4", "ml-v1", start) == base {
		t.Error("different strategies must produce different IDs")
	}
	if ComputeOperationID("PETR4", "moraes-v1", start.AddDate(0, 0, 1)) == base {
		t.Error("different start dates must produce different IDs")
	}
}

func TestComputeOperationID_IgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2019, 3, 4, 9, 30, 0, 0, time.UTC)
	evening := time.Date(2019, 3, 4, 18, 0, 0, 0, time.UTC)

	if ComputeOperationID("PETR4", "moraes-v1", morning) != ComputeOperationID("PETR4", "moraes-v1", evening) {
		t.Error("operation ID must depend on the calendar date only")
	}
}
