package contest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/run-contest/models"
	"github.com/shopspring/decimal"
)

const (
	MinQuorum     = 3
	MaxModeLength = 32
	secondsPerDay = 86400
)

// ValidateParams checks the construction invariants of a contest.
func ValidateParams(p models.ContestParams) error {
	if p.MinRunners < MinQuorum {
		return ErrInsufficientQuorumConfig
	}
	if !p.Asset.Valid() {
		return fmt.Errorf("%w: asset is required", ErrInvalidParams)
	}
	if p.ContestLengthDays < 0 {
		return fmt.Errorf("%w: contest length must not be negative", ErrInvalidParams)
	}
	if len(p.Mode) > MaxModeLength {
		return fmt.Errorf("%w: mode must be at most %d bytes", ErrInvalidParams, MaxModeLength)
	}
	amounts := []struct {
		name  string
		value decimal.Decimal
	}{
		{"entry fee", p.EntryFee},
		{"first payout", p.PayoutFirst},
		{"second payout", p.PayoutSecond},
		{"third payout", p.PayoutThird},
	}
	for _, a := range amounts {
		if err := checkAmount(a.value); err != nil {
			return fmt.Errorf("%w: %s %v", ErrInvalidParams, a.name, err)
		}
	}
	if p.EntryFee.LessThan(p.PayoutSum()) {
		return ErrInsufficientPayoutFunding
	}
	return nil
}

// ParseUnits converts a human amount such as "300" or "1.5" into base units
// of an asset with the given number of decimals.
func ParseUnits(s string, decimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	d = d.Shift(decimals)
	if err := checkAmount(d); err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q with %d decimals: %w", s, decimals, err)
	}
	return d, nil
}

// FormatUnits renders base units as a human amount.
func FormatUnits(d decimal.Decimal, decimals int32) string {
	return d.Shift(-decimals).String()
}

func checkAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	if !d.IsInteger() {
		return errors.New("must be a whole number of base units")
	}
	return nil
}
