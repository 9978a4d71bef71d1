package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/run-contest/models"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountConflict = errors.New("account already exists")
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByAddress(ctx context.Context, address models.Address) (*models.Account, error)
	UpdateKeyHash(ctx context.Context, address models.Address, keyHash string) error
}

type postgresAccountRepository struct {
	db *sql.DB
}

func NewPostgresAccountRepository(db *sql.DB) AccountRepository {
	return &postgresAccountRepository{db: db}
}

func (r *postgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (address, key_hash) VALUES ($1, $2) RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, account.Address, account.KeyHash).Scan(&account.CreatedAt)
	if err != nil {
		if pqErr, ok := asPQError(err); ok && pqErr.Code == pqUniqueViolation {
			return ErrAccountConflict
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *postgresAccountRepository) GetByAddress(ctx context.Context, address models.Address) (*models.Account, error) {
	query := `SELECT address, key_hash, created_at FROM accounts WHERE address = $1`
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, address).Scan(&a.Address, &a.KeyHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (r *postgresAccountRepository) UpdateKeyHash(ctx context.Context, address models.Address, keyHash string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE accounts SET key_hash = $1 WHERE address = $2`, keyHash, address)
	if err != nil {
		return fmt.Errorf("failed to update account key: %w", err)
	}
	return checkAffectedRows(result, ErrAccountNotFound)
}
