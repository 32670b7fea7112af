package domain

import (
	"cmp"
	"fmt"
	"slices"
)

type Selection struct {
	RecordIDs []string
	Covered   int64
}

// SelectForAmount walks eligible records oldest first and takes whole records
// until the covered amount reaches target. Records with the same timestamp are
// ordered by insertion sequence. If the pool cannot cover target the result is
// ErrInsufficientBalance and nothing is selected.
func SelectForAmount(records []LedgerRecord, target int64) (Selection, error) {
	if target <= 0 {
		return Selection{}, fmt.Errorf("%w: target amount must be positive", ErrInvalidInput)
	}
	ordered := slices.Clone(records)
	slices.SortStableFunc(ordered, func(a, b LedgerRecord) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})

	var out Selection
	for _, rec := range ordered {
		if rec.Amount <= 0 {
			continue
		}
		out.RecordIDs = append(out.RecordIDs, rec.RecordID)
		out.Covered += rec.Amount
		if out.Covered >= target {
			return out, nil
		}
	}
	return Selection{}, fmt.Errorf("%w: requested %d, eligible %d", ErrInsufficientBalance, target, out.Covered)
}

func SumRecords(records []LedgerRecord) int64 {
	var total int64
	for _, rec := range records {
		total += rec.Amount
	}
	return total
}
