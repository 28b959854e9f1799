package app

import (
	"fmt"

	"github.com/ReyGenteng/galaxy/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FeeSchedule computes the processing fee withheld from a settled deposit:
// floor(nominal * percent / 100) + flat.
type FeeSchedule struct {
	Percent decimal.Decimal
	Flat    int64
}

func NewFeeSchedule(percent float64, flat int64) FeeSchedule {
	return FeeSchedule{Percent: decimal.NewFromFloat(percent), Flat: flat}
}

// DefaultFeeSchedule is 1.4% + Rp 300.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{Percent: decimal.RequireFromString("1.4"), Flat: 300}
}

// Fee returns the fee for a nominal amount.
func (f FeeSchedule) Fee(nominal int64) int64 {
	if nominal <= 0 {
		return f.Flat
	}
	variable := decimal.NewFromInt(nominal).Mul(f.Percent).Div(hundred).Floor()
	return variable.IntPart() + f.Flat
}

// Settle returns the fee and the net credit for a nominal amount. The credit never goes negative.
func (f FeeSchedule) Settle(nominal int64) domain.Settlement {
	fee := f.Fee(nominal)
	credited := nominal - fee
	if credited < 0 {
		credited = 0
	}
	return domain.Settlement{Nominal: nominal, Fee: fee, Credited: credited}
}

// String renders the schedule for display, e.g. "1.4% + Rp 300".
func (f FeeSchedule) String() string {
	return fmt.Sprintf("%s%% + Rp %d", f.Percent.String(), f.Flat)
}
