// Package ledger holds an in-process fungible asset used by tests and local
// tooling in place of the Postgres-backed ledger.
package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/Dosada05/run-contest/contest"
	"github.com/Dosada05/run-contest/models"
	"github.com/shopspring/decimal"
)

var ErrNegativeAmount = errors.New("amount must not be negative")

type allowanceKey struct {
	owner, spender models.Address
}

// Memory is a single-asset ledger with approve-before-pull semantics.
type Memory struct {
	mu         sync.Mutex
	balances   map[models.Address]decimal.Decimal
	allowances map[allowanceKey]decimal.Decimal
	journal    []models.Transfer
	failNext   error
}

var _ contest.Asset = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		balances:   make(map[models.Address]decimal.Decimal),
		allowances: make(map[allowanceKey]decimal.Decimal),
	}
}

// Mint credits amount to account out of thin air.
func (m *Memory) Mint(account models.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] = m.balances[account].Add(amount)
	m.journal = append(m.journal, models.Transfer{To: account, Amount: amount})
	return nil
}

// Approve sets, not increments, the amount spender may pull from owner.
func (m *Memory) Approve(owner, spender models.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[allowanceKey{owner, spender}] = amount
	return nil
}

func (m *Memory) BalanceOf(account models.Address) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account]
}

func (m *Memory) Allowance(owner, spender models.Address) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowances[allowanceKey{owner, spender}]
}

// Transfers returns the journal of every mint and transfer.
func (m *Memory) Transfers() []models.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Transfer, len(m.journal))
	copy(out, m.journal)
	return out
}

// FailNext makes the next transfer fail with err without moving value.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *Memory) TransferFrom(_ context.Context, spender, from, to models.Address, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	key := allowanceKey{from, spender}
	allowed := m.allowances[key]
	if allowed.LessThan(amount) {
		return contest.ErrInsufficientAllowance
	}
	if m.balances[from].LessThan(amount) {
		return contest.ErrInsufficientBalance
	}
	m.allowances[key] = allowed.Sub(amount)
	m.move(from, to, amount)
	return nil
}

func (m *Memory) Transfer(_ context.Context, from, to models.Address, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if m.balances[from].LessThan(amount) {
		return contest.ErrInsufficientBalance
	}
	m.move(from, to, amount)
	return nil
}

func (m *Memory) move(from, to models.Address, amount decimal.Decimal) {
	m.balances[from] = m.balances[from].Sub(amount)
	m.balances[to] = m.balances[to].Add(amount)
	m.journal = append(m.journal, models.Transfer{From: from, To: to, Amount: amount})
}

func (m *Memory) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}
