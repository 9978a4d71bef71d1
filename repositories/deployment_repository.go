package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/run-contest/models"
)

var (
	ErrDeploymentNotFound = errors.New("deployment not found")
	ErrDeploymentConflict = errors.New("deployment slot already taken")
)

// DeploymentRepository persists instance handles keyed by network, kind and
// index.
type DeploymentRepository interface {
	Record(ctx context.Context, exec SQLExecutor, d *models.Deployment) error
	Get(ctx context.Context, network string, kind models.DeploymentKind, idx int) (*models.Deployment, error)
	List(ctx context.Context, network string) ([]models.Deployment, error)
}

type postgresDeploymentRepository struct {
	db *sql.DB
}

func NewPostgresDeploymentRepository(db *sql.DB) DeploymentRepository {
	return &postgresDeploymentRepository{db: db}
}

func (r *postgresDeploymentRepository) Record(ctx context.Context, exec SQLExecutor, d *models.Deployment) error {
	query := `
		INSERT INTO deployments (network, kind, idx, address)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	err := executor(r.db, exec).QueryRowContext(ctx, query, d.Network, d.Kind, d.Index, d.Address).Scan(&d.CreatedAt)
	if err != nil {
		if pqErr, ok := asPQError(err); ok && pqErr.Code == pqUniqueViolation {
			return ErrDeploymentConflict
		}
		return fmt.Errorf("failed to record deployment: %w", err)
	}
	return nil
}

func (r *postgresDeploymentRepository) Get(ctx context.Context, network string, kind models.DeploymentKind, idx int) (*models.Deployment, error) {
	query := `
		SELECT network, kind, idx, address, created_at
		FROM deployments
		WHERE network = $1 AND kind = $2 AND idx = $3`
	d := &models.Deployment{}
	err := r.db.QueryRowContext(ctx, query, network, kind, idx).Scan(&d.Network, &d.Kind, &d.Index, &d.Address, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}
	return d, nil
}

func (r *postgresDeploymentRepository) List(ctx context.Context, network string) ([]models.Deployment, error) {
	query := `
		SELECT network, kind, idx, address, created_at
		FROM deployments
		WHERE network = $1
		ORDER BY kind DESC, idx`
	rows, err := r.db.QueryContext(ctx, query, network)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	deployments := make([]models.Deployment, 0)
	for rows.Next() {
		var d models.Deployment
		if err := rows.Scan(&d.Network, &d.Kind, &d.Index, &d.Address, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deployments, nil
}
