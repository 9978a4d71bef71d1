package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/run-contest/contest"
	"github.com/Dosada05/run-contest/models"
	"github.com/shopspring/decimal"
)

var ErrNegativeAmount = errors.New("amount must not be negative")

// LedgerRepository stores balances, allowances and the transfer journal of
// every asset.
type LedgerRepository interface {
	// Asset binds one asset to exec. Contest operations pass their
	// transaction so that transfers commit or roll back with the state change.
	Asset(exec SQLExecutor, asset models.Address) contest.Asset
	Mint(ctx context.Context, exec SQLExecutor, asset, account models.Address, amount decimal.Decimal) error
	Approve(ctx context.Context, exec SQLExecutor, asset, owner, spender models.Address, amount decimal.Decimal) error
	BalanceOf(ctx context.Context, exec SQLExecutor, asset, account models.Address) (decimal.Decimal, error)
	Allowance(ctx context.Context, exec SQLExecutor, asset, owner, spender models.Address) (decimal.Decimal, error)
	ListTransfers(ctx context.Context, asset, account models.Address, limit int) ([]models.Transfer, error)
}

type postgresLedgerRepository struct {
	db *sql.DB
}

func NewPostgresLedgerRepository(db *sql.DB) LedgerRepository {
	return &postgresLedgerRepository{db: db}
}

func (r *postgresLedgerRepository) Asset(exec SQLExecutor, asset models.Address) contest.Asset {
	return &sqlAsset{exec: executor(r.db, exec), asset: asset}
}

func (r *postgresLedgerRepository) Mint(ctx context.Context, exec SQLExecutor, asset, account models.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	ex := executor(r.db, exec)
	if err := credit(ctx, ex, asset, account, amount); err != nil {
		return err
	}
	return journal(ctx, ex, asset, "", account, amount)
}

func (r *postgresLedgerRepository) Approve(ctx context.Context, exec SQLExecutor, asset, owner, spender models.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	query := `
		INSERT INTO ledger_allowances (asset, owner, spender, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (asset, owner, spender) DO UPDATE SET amount = EXCLUDED.amount`
	if _, err := executor(r.db, exec).ExecContext(ctx, query, asset, owner, spender, amount); err != nil {
		return fmt.Errorf("failed to set allowance: %w", err)
	}
	return nil
}

func (r *postgresLedgerRepository) BalanceOf(ctx context.Context, exec SQLExecutor, asset, account models.Address) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := executor(r.db, exec).QueryRowContext(ctx,
		`SELECT amount FROM ledger_balances WHERE asset = $1 AND account = $2`, asset, account,
	).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return amount, nil
}

func (r *postgresLedgerRepository) Allowance(ctx context.Context, exec SQLExecutor, asset, owner, spender models.Address) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := executor(r.db, exec).QueryRowContext(ctx,
		`SELECT amount FROM ledger_allowances WHERE asset = $1 AND owner = $2 AND spender = $3`, asset, owner, spender,
	).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read allowance: %w", err)
	}
	return amount, nil
}

// ListTransfers returns the newest transfers of asset first. An empty account
// lists every transfer of the asset.
func (r *postgresLedgerRepository) ListTransfers(ctx context.Context, asset, account models.Address, limit int) ([]models.Transfer, error) {
	query := `
		SELECT id, asset, COALESCE(from_account, ''), to_account, amount, created_at
		FROM ledger_transfers
		WHERE asset = $1 AND ($2::text = '' OR from_account = $2 OR to_account = $2)
		ORDER BY id DESC`
	args := []interface{}{asset, account}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	transfers := make([]models.Transfer, 0)
	for rows.Next() {
		var t models.Transfer
		if err := rows.Scan(&t.ID, &t.Asset, &t.From, &t.To, &t.Amount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transfers, nil
}

// sqlAsset checks every precondition before it writes, so a failed transfer
// leaves no rows changed even outside a transaction.
type sqlAsset struct {
	exec  SQLExecutor
	asset models.Address
}

func (a *sqlAsset) TransferFrom(ctx context.Context, spender, from, to models.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	var allowed decimal.Decimal
	err := a.exec.QueryRowContext(ctx, `
		SELECT amount FROM ledger_allowances
		WHERE asset = $1 AND owner = $2 AND spender = $3
		FOR UPDATE`, a.asset, from, spender,
	).Scan(&allowed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read allowance: %w", err)
	}
	if allowed.LessThan(amount) {
		return contest.ErrInsufficientAllowance
	}
	if err := a.debit(ctx, from, amount); err != nil {
		return err
	}
	if _, err := a.exec.ExecContext(ctx, `
		UPDATE ledger_allowances SET amount = amount - $4
		WHERE asset = $1 AND owner = $2 AND spender = $3`, a.asset, from, spender, amount,
	); err != nil {
		return fmt.Errorf("failed to consume allowance: %w", err)
	}
	if err := credit(ctx, a.exec, a.asset, to, amount); err != nil {
		return err
	}
	return journal(ctx, a.exec, a.asset, from, to, amount)
}

func (a *sqlAsset) Transfer(ctx context.Context, from, to models.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if err := a.debit(ctx, from, amount); err != nil {
		return err
	}
	if err := credit(ctx, a.exec, a.asset, to, amount); err != nil {
		return err
	}
	return journal(ctx, a.exec, a.asset, from, to, amount)
}

func (a *sqlAsset) debit(ctx context.Context, account models.Address, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	result, err := a.exec.ExecContext(ctx, `
		UPDATE ledger_balances SET amount = amount - $3
		WHERE asset = $1 AND account = $2 AND amount >= $3`, a.asset, account, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to debit %s: %w", account, err)
	}
	return checkAffectedRows(result, contest.ErrInsufficientBalance)
}

func credit(ctx context.Context, exec SQLExecutor, asset, account models.Address, amount decimal.Decimal) error {
	query := `
		INSERT INTO ledger_balances (asset, account, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset, account) DO UPDATE SET amount = ledger_balances.amount + EXCLUDED.amount`
	if _, err := exec.ExecContext(ctx, query, asset, account, amount); err != nil {
		return fmt.Errorf("failed to credit %s: %w", account, err)
	}
	return nil
}

func journal(ctx context.Context, exec SQLExecutor, asset, from, to models.Address, amount decimal.Decimal) error {
	query := `
		INSERT INTO ledger_transfers (asset, from_account, to_account, amount)
		VALUES ($1, NULLIF($2::text, ''), $3, $4)`
	if _, err := exec.ExecContext(ctx, query, asset, from, to, amount); err != nil {
		return fmt.Errorf("failed to journal transfer: %w", err)
	}
	return nil
}
