package services

import (
	"context"
	"fmt"

	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/repositories"
	"github.com/shopspring/decimal"
)

// LedgerService exposes the asset ledger to accounts: setting allowances for
// a contest escrow and reading balances. Mint funds accounts in development
// networks and is only reachable from the operator CLI.
type LedgerService interface {
	Approve(ctx context.Context, caller, asset, spender models.Address, amount decimal.Decimal) (*models.Allowance, error)
	Mint(ctx context.Context, asset, account models.Address, amount decimal.Decimal) (decimal.Decimal, error)
	BalanceOf(ctx context.Context, asset, account models.Address) (decimal.Decimal, error)
	Allowance(ctx context.Context, asset, owner, spender models.Address) (*models.Allowance, error)
	ListTransfers(ctx context.Context, asset, account models.Address, limit int) ([]models.Transfer, error)
}

type ledgerService struct {
	ledger    repositories.LedgerRepository
	contests  repositories.ContestRepository
	telemetry *Telemetry
}

func NewLedgerService(ledger repositories.LedgerRepository, contests repositories.ContestRepository, telemetry *Telemetry) LedgerService {
	return &ledgerService{ledger: ledger, contests: contests, telemetry: telemetry}
}

func validateLedgerInput(asset, account models.Address, amount decimal.Decimal) error {
	if !asset.Valid() || !account.Valid() {
		return fmt.Errorf("%w: asset and account are required", ErrValidationFailed)
	}
	if amount.IsNegative() || !amount.Equal(amount.Truncate(0)) {
		return fmt.Errorf("%w: amount must be a non-negative whole number of base units", ErrValidationFailed)
	}
	return nil
}

func (s *ledgerService) Approve(ctx context.Context, caller, asset, spender models.Address, amount decimal.Decimal) (*models.Allowance, error) {
	if err := validateLedgerInput(asset, spender, amount); err != nil {
		return nil, err
	}
	err := s.telemetry.observe(ctx, "approve", asset, caller, func(ctx context.Context) error {
		// An escrow's balance only moves through its own contest.
		if err := checkNotReserved(ctx, s.contests, nil, caller); err != nil {
			return err
		}
		return s.ledger.Approve(ctx, nil, asset, caller, spender, amount)
	})
	if err != nil {
		return nil, err
	}
	return &models.Allowance{Asset: asset, Owner: caller, Spender: spender, Amount: amount}, nil
}

func (s *ledgerService) Mint(ctx context.Context, asset, account models.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := validateLedgerInput(asset, account, amount); err != nil {
		return decimal.Zero, err
	}
	err := s.telemetry.observe(ctx, "mint", asset, account, func(ctx context.Context) error {
		return s.ledger.Mint(ctx, nil, asset, account, amount)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return s.ledger.BalanceOf(ctx, nil, asset, account)
}

func (s *ledgerService) BalanceOf(ctx context.Context, asset, account models.Address) (decimal.Decimal, error) {
	return s.ledger.BalanceOf(ctx, nil, asset, account)
}

func (s *ledgerService) Allowance(ctx context.Context, asset, owner, spender models.Address) (*models.Allowance, error) {
	amount, err := s.ledger.Allowance(ctx, nil, asset, owner, spender)
	if err != nil {
		return nil, err
	}
	return &models.Allowance{Asset: asset, Owner: owner, Spender: spender, Amount: amount}, nil
}

func (s *ledgerService) ListTransfers(ctx context.Context, asset, account models.Address, limit int) ([]models.Transfer, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.ledger.ListTransfers(ctx, asset, account, limit)
}
