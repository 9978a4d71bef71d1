package models

import (
	"strings"
	"time"
)

// Address is the stable handle of a deployed registry or contest, and of any
// account holding an asset balance.
type Address string

func (a Address) String() string { return string(a) }

// Valid reports whether the address is non-empty after trimming.
func (a Address) Valid() bool {
	return strings.TrimSpace(string(a)) != ""
}

// NormalizeAddress trims whitespace and lowercases hex-style addresses so that
// "0xABC" and "0xabc" name the same account.
func NormalizeAddress(s string) Address {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return Address(strings.ToLower(s))
	}
	return Address(s)
}

type Account struct {
	Address   Address   `json:"address" db:"address"`
	KeyHash   string    `json:"-" db:"key_hash"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
