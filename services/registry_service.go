package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Dosada05/run-contest/contest"
	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/repositories"
)

type RegistryService interface {
	// Deploy creates the network's registry owned by caller. A network has
	// at most one registry.
	Deploy(ctx context.Context, caller models.Address) (*models.RegistryView, error)
	// Current returns the network's registry.
	Current(ctx context.Context) (*models.RegistryView, error)
	Get(ctx context.Context, address models.Address) (*models.RegistryView, error)
	AddContest(ctx context.Context, caller, registry, handle models.Address) (*models.RegistryView, error)
	NumContests(ctx context.Context, registry models.Address) (int, error)
	CurrentContest(ctx context.Context, registry models.Address) (models.Address, error)
	ListContests(ctx context.Context, registry models.Address) ([]models.Address, error)
	Deployments(ctx context.Context) ([]models.Deployment, error)
}

type registryService struct {
	tx        Transactor
	repos     Repositories
	telemetry *Telemetry
	network   string
	logger    *slog.Logger
}

func NewRegistryService(tx Transactor, repos Repositories, telemetry *Telemetry, network string, logger *slog.Logger) RegistryService {
	return &registryService{
		tx:        tx,
		repos:     repos,
		telemetry: telemetry,
		network:   network,
		logger:    logger,
	}
}

func (s *registryService) Deploy(ctx context.Context, caller models.Address) (*models.RegistryView, error) {
	address := newAddress()
	var reg *contest.Registry

	err := s.telemetry.observe(ctx, "deploy_registry", address, caller, func(ctx context.Context) error {
		var err error
		reg, err = contest.NewRegistry(address, caller)
		if err != nil {
			return err
		}
		return s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
			state := &models.Registry{Address: reg.Address(), Owner: reg.Owner()}
			if err := s.repos.Registries.Create(ctx, tx, state); err != nil {
				return err
			}
			err := s.repos.Deployments.Record(ctx, tx, &models.Deployment{
				Network: s.network,
				Kind:    models.DeploymentRegistry,
				Index:   0,
				Address: address,
			})
			if errors.Is(err, repositories.ErrDeploymentConflict) {
				return ErrRegistryAlreadyDeployed
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	view := reg.View()
	return &view, nil
}

func (s *registryService) Current(ctx context.Context) (*models.RegistryView, error) {
	dep, err := s.repos.Deployments.Get(ctx, s.network, models.DeploymentRegistry, 0)
	if errors.Is(err, repositories.ErrDeploymentNotFound) {
		return nil, ErrRegistryNotDeployed
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, dep.Address)
}

func (s *registryService) load(ctx context.Context, address models.Address) (*contest.Registry, error) {
	state, err := s.repos.Registries.GetByAddress(ctx, nil, address)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return contest.LoadRegistry(state), nil
}

func (s *registryService) Get(ctx context.Context, address models.Address) (*models.RegistryView, error) {
	reg, err := s.load(ctx, address)
	if err != nil {
		return nil, err
	}
	view := reg.View()
	return &view, nil
}

func (s *registryService) AddContest(ctx context.Context, caller, registry, handle models.Address) (*models.RegistryView, error) {
	var reg *contest.Registry
	err := s.telemetry.observe(ctx, "add_contest", registry, caller, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
			state, err := s.repos.Registries.GetForUpdate(ctx, tx, registry)
			if err != nil {
				return handleRepositoryError(err)
			}
			reg = contest.LoadRegistry(state)
			position := reg.NumContests()
			if err := reg.AddContest(caller, handle); err != nil {
				return err
			}
			err = s.repos.Registries.AppendContest(ctx, tx, registry, position, handle)
			switch {
			case errors.Is(err, repositories.ErrRegistryContestConflict):
				return contest.ErrDuplicateContest
			case errors.Is(err, repositories.ErrRegistryContestInvalid):
				return ErrContestNotFound
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	view := reg.View()
	return &view, nil
}

func (s *registryService) NumContests(ctx context.Context, registry models.Address) (int, error) {
	reg, err := s.load(ctx, registry)
	if err != nil {
		return 0, err
	}
	return reg.NumContests(), nil
}

func (s *registryService) CurrentContest(ctx context.Context, registry models.Address) (models.Address, error) {
	reg, err := s.load(ctx, registry)
	if err != nil {
		return "", err
	}
	return reg.CurrentContest()
}

func (s *registryService) ListContests(ctx context.Context, registry models.Address) ([]models.Address, error) {
	reg, err := s.load(ctx, registry)
	if err != nil {
		return nil, err
	}
	return reg.Contests(), nil
}

func (s *registryService) Deployments(ctx context.Context) ([]models.Deployment, error) {
	return s.repos.Deployments.List(ctx, s.network)
}
