package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/run-contest/models"
)

var (
	ErrRegistryNotFound        = errors.New("registry not found")
	ErrRegistryAddressConflict = errors.New("registry address already in use")
	ErrRegistryContestConflict = errors.New("contest already listed in registry")
	ErrRegistryContestInvalid  = errors.New("registry entry references an unknown contest")
)

type RegistryRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registry) error
	// GetByAddress loads the registry with its contests in insertion order.
	GetByAddress(ctx context.Context, exec SQLExecutor, address models.Address) (*models.Registry, error)
	GetForUpdate(ctx context.Context, tx SQLExecutor, address models.Address) (*models.Registry, error)
	AppendContest(ctx context.Context, exec SQLExecutor, registry models.Address, position int, contest models.Address) error
}

type postgresRegistryRepository struct {
	db *sql.DB
}

func NewPostgresRegistryRepository(db *sql.DB) RegistryRepository {
	return &postgresRegistryRepository{db: db}
}

func (r *postgresRegistryRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registry) error {
	query := `INSERT INTO registries (address, owner) VALUES ($1, $2) RETURNING created_at`
	err := executor(r.db, exec).QueryRowContext(ctx, query, reg.Address, reg.Owner).Scan(&reg.CreatedAt)
	if err != nil {
		if pqErr, ok := asPQError(err); ok && pqErr.Code == pqUniqueViolation {
			return ErrRegistryAddressConflict
		}
		return fmt.Errorf("failed to create registry: %w", err)
	}
	return nil
}

func (r *postgresRegistryRepository) GetByAddress(ctx context.Context, exec SQLExecutor, address models.Address) (*models.Registry, error) {
	return r.get(ctx, executor(r.db, exec), `SELECT address, owner, created_at FROM registries WHERE address = $1`, address)
}

func (r *postgresRegistryRepository) GetForUpdate(ctx context.Context, tx SQLExecutor, address models.Address) (*models.Registry, error) {
	return r.get(ctx, tx, `SELECT address, owner, created_at FROM registries WHERE address = $1 FOR UPDATE`, address)
}

func (r *postgresRegistryRepository) get(ctx context.Context, exec SQLExecutor, query string, address models.Address) (*models.Registry, error) {
	reg := &models.Registry{}
	err := exec.QueryRowContext(ctx, query, address).Scan(&reg.Address, &reg.Owner, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistryNotFound
		}
		return nil, fmt.Errorf("failed to get registry %s: %w", address, err)
	}

	rows, err := exec.QueryContext(ctx,
		`SELECT contest FROM registry_contests WHERE registry = $1 ORDER BY position`, address)
	if err != nil {
		return nil, fmt.Errorf("failed to list registry contests: %w", err)
	}
	defer rows.Close()

	reg.Contests = make([]models.Address, 0)
	for rows.Next() {
		var a models.Address
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("failed to scan registry contest: %w", err)
		}
		reg.Contests = append(reg.Contests, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *postgresRegistryRepository) AppendContest(ctx context.Context, exec SQLExecutor, registry models.Address, position int, contest models.Address) error {
	query := `INSERT INTO registry_contests (registry, position, contest) VALUES ($1, $2, $3)`
	_, err := executor(r.db, exec).ExecContext(ctx, query, registry, position, contest)
	if err != nil {
		if pqErr, ok := asPQError(err); ok {
			switch pqErr.Code {
			case pqUniqueViolation:
				return ErrRegistryContestConflict
			case pqForeignKeyViolation:
				if pqErr.Constraint == "registry_contests_registry_fkey" {
					return ErrRegistryNotFound
				}
				return ErrRegistryContestInvalid
			}
		}
		return fmt.Errorf("failed to append contest to registry: %w", err)
	}
	return nil
}
