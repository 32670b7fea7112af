package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

// BasisPointsDenominator is the fee-rate scale: 300 bps is 3%.
const BasisPointsDenominator int64 = 10_000

// SplitGift divides a gross amount into the platform fee and the amount owed
// to the creator. The fee is rounded half-up in integer arithmetic so that
// fee + net always equals gross.
func SplitGift(gross, feeBps int64) (platformFee, netAmount int64, err error) {
	if gross <= 0 {
		return 0, 0, fmt.Errorf("%w: gross amount must be positive", ErrInvalidInput)
	}
	if feeBps < 0 || feeBps > BasisPointsDenominator {
		return 0, 0, fmt.Errorf("%w: fee rate %d bps out of range", ErrInvalidInput, feeBps)
	}
	platformFee = (gross*feeBps + BasisPointsDenominator/2) / BasisPointsDenominator
	return platformFee, gross - platformFee, nil
}

// NetPayout subtracts the gateway's flat transfer fee from a covered amount.
func NetPayout(amount, gatewayFlatFee int64) (int64, error) {
	if gatewayFlatFee < 0 {
		return 0, fmt.Errorf("%w: negative transfer fee", ErrInvalidInput)
	}
	net := amount - gatewayFlatFee
	if net <= 0 {
		return 0, fmt.Errorf("%w: amount %d does not cover transfer fee %d", ErrBelowMinimumPayout, amount, gatewayFlatFee)
	}
	return net, nil
}

// NormalizeCurrency upper-cases and validates an ISO-4217 code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, err := currency.ParseISO(code); err != nil {
		return "", fmt.Errorf("%w: unknown currency %q", ErrInvalidInput, code)
	}
	return code, nil
}
