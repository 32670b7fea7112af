package domain

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestSelectForAmountTakesOldestFirst(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []LedgerRecord{
		{RecordID: "c", Seq: 3, Amount: 30, CreatedAt: base.Add(2 * time.Minute)},
		{RecordID: "a", Seq: 1, Amount: 100, CreatedAt: base},
		{RecordID: "b", Seq: 2, Amount: 50, CreatedAt: base.Add(time.Minute)},
	}

	sel, err := SelectForAmount(records, 120)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !slices.Equal(sel.RecordIDs, []string{"a", "b"}) {
		t.Fatalf("unexpected selection %v", sel.RecordIDs)
	}
	if sel.Covered != 150 {
		t.Fatalf("expected covered 150, got %d", sel.Covered)
	}
	if records[0].RecordID != "c" {
		t.Fatalf("input slice must not be reordered")
	}
}

func TestSelectForAmountBreaksTiesBySequence(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []LedgerRecord{
		{RecordID: "late", Seq: 9, Amount: 40, CreatedAt: at},
		{RecordID: "early", Seq: 4, Amount: 40, CreatedAt: at},
	}

	sel, err := SelectForAmount(records, 40)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !slices.Equal(sel.RecordIDs, []string{"early"}) {
		t.Fatalf("expected the lower sequence first, got %v", sel.RecordIDs)
	}
}

func TestSelectForAmountInsufficientBalance(t *testing.T) {
	t.Parallel()

	records := []LedgerRecord{
		{RecordID: "a", Seq: 1, Amount: 1000},
		{RecordID: "b", Seq: 2, Amount: 2000},
	}
	sel, err := SelectForAmount(records, 5000)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if len(sel.RecordIDs) != 0 || sel.Covered != 0 {
		t.Fatalf("failed selection must be empty, got %+v", sel)
	}
	if _, err := SelectForAmount(records, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero target, got %v", err)
	}
	if got := SumRecords(records); got != 3000 {
		t.Fatalf("expected sum 3000, got %d", got)
	}
}
