package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/run-contest/models"
)

var (
	ErrContestNotFound        = errors.New("contest not found")
	ErrContestAddressConflict = errors.New("contest address already in use")
	ErrContestStateInvalid    = errors.New("contest state violates a storage constraint")
)

type ListContestsFilter struct {
	Owner  *models.Address
	Status *models.ContestStatus
	Limit  int
	Offset int
}

type ContestRepository interface {
	Create(ctx context.Context, exec SQLExecutor, c *models.Contest) error
	GetByAddress(ctx context.Context, exec SQLExecutor, address models.Address) (*models.Contest, error)
	// GetForUpdate must run inside a transaction; it locks the row until the
	// transaction ends.
	GetForUpdate(ctx context.Context, tx SQLExecutor, address models.Address) (*models.Contest, error)
	List(ctx context.Context, filter ListContestsFilter) ([]models.Contest, error)
	UpdateState(ctx context.Context, exec SQLExecutor, c *models.Contest) error
	ListResultsDue(ctx context.Context, exec SQLExecutor, now time.Time) ([]models.Contest, error)
	MarkResultsDueNotified(ctx context.Context, exec SQLExecutor, address models.Address) error
	UpdateArchiveKey(ctx context.Context, address models.Address, key *string) error
}

type postgresContestRepository struct {
	db *sql.DB
}

func NewPostgresContestRepository(db *sql.DB) ContestRepository {
	return &postgresContestRepository{db: db}
}

const contestColumns = `
	address, owner, asset, contest_length_days, min_runners,
	entry_fee, payout_first, payout_second, payout_third, mode, description,
	started, canceled, withdrawn, ended, start_ts, end_ts,
	winner_first, winner_second, winner_third,
	results_due_notified, archive_key, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContest(row rowScanner, c *models.Contest) error {
	return row.Scan(
		&c.Address, &c.Owner, &c.Asset, &c.ContestLengthDays, &c.MinRunners,
		&c.EntryFee, &c.PayoutFirst, &c.PayoutSecond, &c.PayoutThird, &c.Mode, &c.Description,
		&c.Started, &c.Canceled, &c.Withdrawn, &c.Ended, &c.StartTimestamp, &c.EndTimestamp,
		&c.WinnerFirst, &c.WinnerSecond, &c.WinnerThird,
		&c.ResultsDueNotified, &c.ArchiveKey, &c.CreatedAt, &c.UpdatedAt,
	)
}

func (r *postgresContestRepository) Create(ctx context.Context, exec SQLExecutor, c *models.Contest) error {
	query := `
		INSERT INTO contests (
			address, owner, asset, contest_length_days, min_runners,
			entry_fee, payout_first, payout_second, payout_third, mode, description
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err := executor(r.db, exec).QueryRowContext(ctx, query,
		c.Address, c.Owner, c.Asset, c.ContestLengthDays, c.MinRunners,
		c.EntryFee, c.PayoutFirst, c.PayoutSecond, c.PayoutThird, c.Mode, c.Description,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	return r.handleContestError(err)
}

func (r *postgresContestRepository) GetByAddress(ctx context.Context, exec SQLExecutor, address models.Address) (*models.Contest, error) {
	return r.get(ctx, executor(r.db, exec), `SELECT`+contestColumns+` FROM contests WHERE address = $1`, address)
}

func (r *postgresContestRepository) GetForUpdate(ctx context.Context, tx SQLExecutor, address models.Address) (*models.Contest, error) {
	return r.get(ctx, tx, `SELECT`+contestColumns+` FROM contests WHERE address = $1 FOR UPDATE`, address)
}

func (r *postgresContestRepository) get(ctx context.Context, exec SQLExecutor, query string, address models.Address) (*models.Contest, error) {
	c := &models.Contest{}
	if err := scanContest(exec.QueryRowContext(ctx, query, address), c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to get contest %s: %w", address, err)
	}
	return c, nil
}

func (r *postgresContestRepository) List(ctx context.Context, filter ListContestsFilter) ([]models.Contest, error) {
	query := `SELECT` + contestColumns + ` FROM contests WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Owner != nil {
		query += fmt.Sprintf(" AND owner = $%d", argID)
		args = append(args, *filter.Owner)
		argID++
	}
	if filter.Status != nil {
		switch *filter.Status {
		case models.StatusCanceled:
			query += " AND canceled"
		case models.StatusEnded:
			query += " AND ended"
		case models.StatusStarted:
			query += " AND started AND NOT ended"
		case models.StatusRegistering:
			query += " AND NOT started AND NOT canceled"
		}
	}

	query += " ORDER BY created_at DESC, address"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contests: %w", err)
	}
	defer rows.Close()

	contests := make([]models.Contest, 0)
	for rows.Next() {
		var c models.Contest
		if err := scanContest(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan contest: %w", err)
		}
		contests = append(contests, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contests, nil
}

// UpdateState writes every mutable column. Construction parameters other
// than the description are never rewritten.
func (r *postgresContestRepository) UpdateState(ctx context.Context, exec SQLExecutor, c *models.Contest) error {
	query := `
		UPDATE contests SET
			description = $1,
			started = $2,
			canceled = $3,
			withdrawn = $4,
			ended = $5,
			start_ts = $6,
			end_ts = $7,
			winner_first = $8,
			winner_second = $9,
			winner_third = $10,
			updated_at = $11
		WHERE address = $12`

	result, err := executor(r.db, exec).ExecContext(ctx, query,
		c.Description, c.Started, c.Canceled, c.Withdrawn, c.Ended,
		c.StartTimestamp, c.EndTimestamp,
		c.WinnerFirst, c.WinnerSecond, c.WinnerThird,
		c.UpdatedAt, c.Address,
	)
	if err != nil {
		return r.handleContestError(err)
	}
	return checkAffectedRows(result, ErrContestNotFound)
}

// ListResultsDue returns started contests past their end timestamp whose
// winners are not set and that were not announced yet.
func (r *postgresContestRepository) ListResultsDue(ctx context.Context, exec SQLExecutor, now time.Time) ([]models.Contest, error) {
	query := `SELECT` + contestColumns + `
		FROM contests
		WHERE started AND NOT ended AND NOT results_due_notified AND end_ts <= $1
		ORDER BY end_ts`

	rows, err := executor(r.db, exec).QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query contests with results due: %w", err)
	}
	defer rows.Close()

	var contests []models.Contest
	for rows.Next() {
		var c models.Contest
		if err := scanContest(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan contest with results due: %w", err)
		}
		contests = append(contests, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during contest rows iteration: %w", err)
	}
	return contests, nil
}

func (r *postgresContestRepository) MarkResultsDueNotified(ctx context.Context, exec SQLExecutor, address models.Address) error {
	query := `UPDATE contests SET results_due_notified = TRUE WHERE address = $1 AND NOT results_due_notified`
	result, err := executor(r.db, exec).ExecContext(ctx, query, address)
	if err != nil {
		return fmt.Errorf("failed to mark results due for contest %s: %w", address, err)
	}
	return checkAffectedRows(result, ErrContestNotFound)
}

func (r *postgresContestRepository) UpdateArchiveKey(ctx context.Context, address models.Address, key *string) error {
	query := `UPDATE contests SET archive_key = $1 WHERE address = $2`
	result, err := r.db.ExecContext(ctx, query, key, address)
	if err != nil {
		return fmt.Errorf("failed to update contest archive key: %w", err)
	}
	return checkAffectedRows(result, ErrContestNotFound)
}

func (r *postgresContestRepository) handleContestError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			if pqErr.Constraint == "contests_pkey" {
				return ErrContestAddressConflict
			}
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", ErrContestStateInvalid, pqErr.Constraint)
		}
	}
	return err
}
