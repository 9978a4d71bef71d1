package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/run-contest/models"
)

var (
	ErrRegistrationConflict       = errors.New("runner already registered for this contest")
	ErrRegistrationContestInvalid = errors.New("registration references an unknown contest")
)

type RegistrationRepository interface {
	// ListByContest returns registrations in registration order.
	ListByContest(ctx context.Context, exec SQLExecutor, contest models.Address) ([]models.Registration, error)
	// ListByAccount returns the registrations paid for by account across
	// every contest, newest first.
	ListByAccount(ctx context.Context, account models.Address) ([]models.Registration, error)
	// Save inserts a new registration or updates the claim flags of an
	// existing one.
	Save(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) ListByContest(ctx context.Context, exec SQLExecutor, contest models.Address) ([]models.Registration, error) {
	query := `
		SELECT contest, runner_id, account, collected, refunded, registered_at
		FROM registrations
		WHERE contest = $1
		ORDER BY registered_at, runner_id`
	return r.list(ctx, executor(r.db, exec), query, contest)
}

func (r *postgresRegistrationRepository) ListByAccount(ctx context.Context, account models.Address) ([]models.Registration, error) {
	query := `
		SELECT contest, runner_id, account, collected, refunded, registered_at
		FROM registrations
		WHERE account = $1
		ORDER BY registered_at DESC`
	return r.list(ctx, r.db, query, account)
}

func (r *postgresRegistrationRepository) list(ctx context.Context, exec SQLExecutor, query string, arg interface{}) ([]models.Registration, error) {
	rows, err := exec.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	regs := make([]models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(&reg.Contest, &reg.RunnerID, &reg.Account, &reg.Collected, &reg.Refunded, &reg.RegisteredAt); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *postgresRegistrationRepository) Save(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (contest, runner_id, account, collected, refunded, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (contest, runner_id) DO UPDATE SET
			collected = EXCLUDED.collected,
			refunded = EXCLUDED.refunded
		WHERE registrations.account = EXCLUDED.account`

	result, err := executor(r.db, exec).ExecContext(ctx, query,
		reg.Contest, reg.RunnerID, reg.Account, reg.Collected, reg.Refunded, reg.RegisteredAt,
	)
	if err != nil {
		if pqErr, ok := asPQError(err); ok && pqErr.Code == pqForeignKeyViolation {
			return ErrRegistrationContestInvalid
		}
		return fmt.Errorf("failed to save registration %s/%s: %w", reg.Contest, reg.RunnerID, err)
	}
	// A conflicting row registered by another account is left untouched.
	return checkAffectedRows(result, ErrRegistrationConflict)
}
