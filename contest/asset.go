package contest

import (
	"context"
	"time"

	"github.com/Dosada05/run-contest/models"
	"github.com/shopspring/decimal"
)

// Asset is the fungible value-transfer primitive a contest escrows with.
//
// TransferFrom pulls amount out of from's balance on behalf of spender and
// must fail with ErrInsufficientAllowance unless from previously approved
// spender for at least amount. Transfer pushes amount out of from's own
// balance. Both fail with ErrInsufficientBalance when from cannot cover the
// amount, and neither may leave a partial effect behind on failure.
type Asset interface {
	TransferFrom(ctx context.Context, spender, from, to models.Address, amount decimal.Decimal) error
	Transfer(ctx context.Context, from, to models.Address, amount decimal.Decimal) error
}

// Clock supplies the current time for time-gated transitions.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reports wall-clock UTC time.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })
