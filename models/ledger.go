package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transfer struct {
	ID        int64           `json:"id" db:"id"`
	Asset     Address         `json:"asset" db:"asset"`
	From      Address         `json:"from" db:"from_account"`
	To        Address         `json:"to" db:"to_account"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

type Allowance struct {
	Asset   Address         `json:"asset"`
	Owner   Address         `json:"owner"`
	Spender Address         `json:"spender"`
	Amount  decimal.Decimal `json:"amount"`
}
