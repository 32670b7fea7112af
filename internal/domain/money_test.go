package domain

import (
	"errors"
	"testing"
)

func TestSplitGiftRoundsHalfUp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		gross, bps, fee, net int64
	}{
		{gross: 1000, bps: 300, fee: 30, net: 970},
		{gross: 50, bps: 300, fee: 2, net: 48},
		{gross: 16, bps: 300, fee: 0, net: 16},
		{gross: 17, bps: 300, fee: 1, net: 16},
		{gross: 999, bps: 0, fee: 0, net: 999},
		{gross: 999, bps: 10_000, fee: 999, net: 0},
	}
	for _, tc := range cases {
		fee, net, err := SplitGift(tc.gross, tc.bps)
		if err != nil {
			t.Fatalf("split %d@%d: %v", tc.gross, tc.bps, err)
		}
		if fee != tc.fee || net != tc.net {
			t.Fatalf("split %d@%d = (%d, %d), want (%d, %d)", tc.gross, tc.bps, fee, net, tc.fee, tc.net)
		}
		if fee+net != tc.gross {
			t.Fatalf("split %d@%d loses money: %d + %d", tc.gross, tc.bps, fee, net)
		}
	}
}

func TestSplitGiftRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, _, err := SplitGift(0, 300); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero gross, got %v", err)
	}
	if _, _, err := SplitGift(100, 10_001); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for rate above 100%%, got %v", err)
	}
}

func TestNetPayout(t *testing.T) {
	t.Parallel()

	net, err := NetPayout(970, 20)
	if err != nil || net != 950 {
		t.Fatalf("expected 950, got %d (%v)", net, err)
	}
	if _, err := NetPayout(20, 20); !errors.Is(err, ErrBelowMinimumPayout) {
		t.Fatalf("expected below minimum payout, got %v", err)
	}
	if _, err := NetPayout(100, -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for negative fee, got %v", err)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	t.Parallel()

	code, err := NormalizeCurrency(" kes ")
	if err != nil || code != "KES" {
		t.Fatalf("expected KES, got %q (%v)", code, err)
	}
	if _, err := NormalizeCurrency("XYZQ"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
