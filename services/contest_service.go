package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/run-contest/contest"
	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/repositories"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Repositories bundles the stores shared by the services.
type Repositories struct {
	Contests      repositories.ContestRepository
	Registrations repositories.RegistrationRepository
	Registries    repositories.RegistryRepository
	Deployments   repositories.DeploymentRepository
	Ledger        repositories.LedgerRepository
	Accounts      repositories.AccountRepository
}

type ContestService interface {
	// Deploy creates a contest owned by caller and appends it to the
	// network's registry. caller must own that registry.
	Deploy(ctx context.Context, caller models.Address, params models.ContestParams) (*models.ContestView, error)
	DeployPreset(ctx context.Context, caller models.Address, preset int) (*models.ContestView, error)
	Presets() []models.ContestParams

	Get(ctx context.Context, address models.Address) (*models.ContestView, error)
	List(ctx context.Context, filter repositories.ListContestsFilter) ([]models.Contest, error)
	// ListRegistrations returns every runner id account paid an entry fee
	// for, newest first.
	ListRegistrations(ctx context.Context, account models.Address) ([]models.Registration, error)

	SetDescription(ctx context.Context, caller, address models.Address, text string) (*models.Contest, error)
	RegisterRunner(ctx context.Context, caller, address models.Address, runner models.RunnerID) (*models.Registration, error)
	Cancel(ctx context.Context, caller, address models.Address) (*models.Contest, error)
	Start(ctx context.Context, caller, address models.Address) (*models.Contest, error)
	Withdraw(ctx context.Context, caller, address models.Address) (*contest.Payout, error)
	End(ctx context.Context, caller, address models.Address, first, second, third models.RunnerID) (*models.Contest, error)
	CollectWinnings(ctx context.Context, caller, address models.Address, runner models.RunnerID) (*contest.Payout, error)
	ProcessRefund(ctx context.Context, caller, address models.Address, runner models.RunnerID) (*contest.Payout, error)

	// NotifyResultsDue announces, once per contest, that a started contest
	// reached its end timestamp without winners. It returns how many
	// contests were announced.
	NotifyResultsDue(ctx context.Context) (int, error)
}

type contestService struct {
	tx        Transactor
	repos     Repositories
	events    EventPublisher
	archiver  Archiver
	telemetry *Telemetry
	clock     contest.Clock
	network   string
	presets   []models.ContestParams
	logger    *slog.Logger
}

func NewContestService(
	tx Transactor,
	repos Repositories,
	events EventPublisher,
	archiver Archiver,
	telemetry *Telemetry,
	clock contest.Clock,
	network string,
	presets []models.ContestParams,
	logger *slog.Logger,
) ContestService {
	if events == nil {
		events = NoopPublisher
	}
	if clock == nil {
		clock = contest.SystemClock
	}
	return &contestService{
		tx:        tx,
		repos:     repos,
		events:    events,
		archiver:  archiver,
		telemetry: telemetry,
		clock:     clock,
		network:   network,
		presets:   presets,
		logger:    logger,
	}
}

func (s *contestService) Presets() []models.ContestParams {
	out := make([]models.ContestParams, len(s.presets))
	copy(out, s.presets)
	return out
}

func (s *contestService) DeployPreset(ctx context.Context, caller models.Address, preset int) (*models.ContestView, error) {
	if preset < 0 || preset >= len(s.presets) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrPresetNotFound, preset, len(s.presets))
	}
	return s.Deploy(ctx, caller, s.presets[preset])
}

func (s *contestService) Deploy(ctx context.Context, caller models.Address, params models.ContestParams) (*models.ContestView, error) {
	address := newAddress()
	var (
		idx   int
		state *models.Contest
	)

	err := s.telemetry.observe(ctx, "deploy_contest", address, caller, func(ctx context.Context) error {
		dep, err := s.repos.Deployments.Get(ctx, s.network, models.DeploymentRegistry, 0)
		if errors.Is(err, repositories.ErrDeploymentNotFound) {
			return ErrRegistryNotDeployed
		}
		if err != nil {
			return err
		}

		return s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
			regState, err := s.repos.Registries.GetForUpdate(ctx, tx, dep.Address)
			if err != nil {
				return handleRepositoryError(err)
			}
			reg := contest.LoadRegistry(regState)

			c, err := contest.New(address, caller, params, s.repos.Ledger.Asset(tx, params.Asset), s.clock)
			if err != nil {
				return err
			}
			idx = reg.NumContests()
			if err := reg.AddContest(caller, address); err != nil {
				return err
			}

			state = c.State()
			if err := s.repos.Contests.Create(ctx, tx, state); err != nil {
				return err
			}
			if err := s.repos.Registries.AppendContest(ctx, tx, reg.Address(), idx, address); err != nil {
				return err
			}
			return s.repos.Deployments.Record(ctx, tx, &models.Deployment{
				Network: s.network,
				Kind:    models.DeploymentContest,
				Index:   idx,
				Address: address,
			})
		})
	})
	if err != nil {
		return nil, err
	}

	// Built from the committed state; a fresh escrow holds nothing yet.
	view := &models.ContestView{
		Contest:       state,
		Status:        state.Status(),
		EscrowBalance: decimal.Zero,
		Registrations: []models.Registration{},
	}
	s.publish(models.EventContestDeployed, address, map[string]interface{}{
		"index":  idx,
		"params": view.ContestParams,
	})
	return view, nil
}

func (s *contestService) Get(ctx context.Context, address models.Address) (*models.ContestView, error) {
	state, err := s.repos.Contests.GetByAddress(ctx, nil, address)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	var (
		regs    []models.Registration
		balance decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		regs, err = s.repos.Registrations.ListByContest(gctx, nil, address)
		return err
	})
	g.Go(func() error {
		var err error
		balance, err = s.repos.Ledger.BalanceOf(gctx, nil, state.Asset, address)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load contest %s: %w", address, err)
	}

	if state.ArchiveKey != nil && s.archiver != nil {
		if url := s.archiver.PublicURL(*state.ArchiveKey); url != "" {
			state.ArchiveURL = &url
		}
	}

	return &models.ContestView{
		Contest:       state,
		Status:        state.Status(),
		NumRunners:    len(regs),
		EscrowBalance: balance,
		Registrations: regs,
	}, nil
}

func (s *contestService) List(ctx context.Context, filter repositories.ListContestsFilter) ([]models.Contest, error) {
	return s.repos.Contests.List(ctx, filter)
}

func (s *contestService) ListRegistrations(ctx context.Context, account models.Address) ([]models.Registration, error) {
	if !account.Valid() {
		return nil, fmt.Errorf("%w: account is required", ErrValidationFailed)
	}
	return s.repos.Registrations.ListByAccount(ctx, account)
}

func (s *contestService) SetDescription(ctx context.Context, caller, address models.Address, text string) (*models.Contest, error) {
	c, err := s.mutate(ctx, "set_description", caller, address, func(ctx context.Context, c *contest.Contest) error {
		return c.SetDescription(caller, text)
	})
	if err != nil {
		return nil, err
	}
	s.publish(models.EventDescriptionSet, address, map[string]string{"description": text})
	return c.State(), nil
}

func (s *contestService) RegisterRunner(ctx context.Context, caller, address models.Address, runner models.RunnerID) (*models.Registration, error) {
	c, err := s.mutate(ctx, "register_runner", caller, address, func(ctx context.Context, c *contest.Contest) error {
		if err := checkNotReserved(ctx, s.repos.Contests, nil, caller); err != nil {
			return err
		}
		return c.RegisterRunner(ctx, caller, runner)
	})
	if err != nil {
		return nil, err
	}
	reg, _ := c.Registration(runner)
	s.publish(models.EventRunnerRegistered, address, reg)
	return &reg, nil
}

func (s *contestService) Cancel(ctx context.Context, caller, address models.Address) (*models.Contest, error) {
	c, err := s.mutate(ctx, "cancel_contest", caller, address, func(_ context.Context, c *contest.Contest) error {
		return c.Cancel(caller)
	})
	if err != nil {
		return nil, err
	}
	s.publish(models.EventContestCanceled, address, nil)
	s.archive(ctx, address)
	return c.State(), nil
}

func (s *contestService) Start(ctx context.Context, caller, address models.Address) (*models.Contest, error) {
	c, err := s.mutate(ctx, "start_contest", caller, address, func(_ context.Context, c *contest.Contest) error {
		return c.Start(caller)
	})
	if err != nil {
		return nil, err
	}
	state := c.State()
	s.publish(models.EventContestStarted, address, map[string]interface{}{
		"start_timestamp": state.StartTimestamp,
		"end_timestamp":   state.EndTimestamp,
	})
	return state, nil
}

func (s *contestService) Withdraw(ctx context.Context, caller, address models.Address) (*contest.Payout, error) {
	var payout contest.Payout
	_, err := s.mutate(ctx, "withdraw", caller, address, func(ctx context.Context, c *contest.Contest) error {
		var err error
		payout, err = c.Withdraw(ctx, caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(models.EventOwnerWithdrew, address, payout)
	return &payout, nil
}

func (s *contestService) End(ctx context.Context, caller, address models.Address, first, second, third models.RunnerID) (*models.Contest, error) {
	c, err := s.mutate(ctx, "end_contest", caller, address, func(_ context.Context, c *contest.Contest) error {
		return c.End(caller, first, second, third)
	})
	if err != nil {
		return nil, err
	}
	s.publish(models.EventContestEnded, address, map[string]models.RunnerID{
		"first":  first,
		"second": second,
		"third":  third,
	})
	s.archive(ctx, address)
	return c.State(), nil
}

func (s *contestService) CollectWinnings(ctx context.Context, caller, address models.Address, runner models.RunnerID) (*contest.Payout, error) {
	var payout contest.Payout
	_, err := s.mutate(ctx, "collect_winnings", caller, address, func(ctx context.Context, c *contest.Contest) error {
		var err error
		payout, err = c.CollectWinnings(ctx, runner)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(models.EventWinningsCollected, address, payout)
	return &payout, nil
}

func (s *contestService) ProcessRefund(ctx context.Context, caller, address models.Address, runner models.RunnerID) (*contest.Payout, error) {
	var payout contest.Payout
	_, err := s.mutate(ctx, "process_refund", caller, address, func(ctx context.Context, c *contest.Contest) error {
		var err error
		payout, err = c.ProcessRefund(ctx, runner)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(models.EventRefundProcessed, address, payout)
	return &payout, nil
}

func (s *contestService) NotifyResultsDue(ctx context.Context) (int, error) {
	due, err := s.repos.Contests.ListResultsDue(ctx, nil, s.clock.Now())
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range due {
		err := s.repos.Contests.MarkResultsDueNotified(ctx, nil, c.Address)
		if errors.Is(err, repositories.ErrContestNotFound) {
			// Another scheduler instance got there first.
			continue
		}
		if err != nil {
			return n, err
		}
		s.publish(models.EventResultsDue, c.Address, map[string]interface{}{
			"end_timestamp": c.EndTimestamp,
		})
		n++
	}
	return n, nil
}

// mutate runs op against the locked contest inside one transaction and
// persists whatever op changed. The escrow transfers op makes join the same
// transaction, so a rejected op leaves nothing behind.
func (s *contestService) mutate(
	ctx context.Context,
	operation string,
	caller, address models.Address,
	op func(ctx context.Context, c *contest.Contest) error,
) (*contest.Contest, error) {
	var c *contest.Contest
	err := s.telemetry.observe(ctx, operation, address, caller, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
			state, err := s.repos.Contests.GetForUpdate(ctx, tx, address)
			if err != nil {
				return handleRepositoryError(err)
			}
			regs, err := s.repos.Registrations.ListByContest(ctx, tx, address)
			if err != nil {
				return err
			}

			c = contest.Load(state, regs, s.repos.Ledger.Asset(tx, state.Asset), s.clock)
			if err := op(ctx, c); err != nil {
				return err
			}

			if err := s.repos.Contests.UpdateState(ctx, tx, c.State()); err != nil {
				return err
			}
			for _, reg := range c.DirtyRegistrations() {
				if err := s.repos.Registrations.Save(ctx, tx, &reg); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *contestService) publish(eventType string, address models.Address, payload interface{}) {
	s.events.Publish(models.ContestEvent{
		Type:       eventType,
		Contest:    address,
		Payload:    payload,
		OccurredAt: s.clock.Now(),
	})
}

// archive uploads the settled contest. The operation already committed, so
// a failure is only logged.
func (s *contestService) archive(ctx context.Context, address models.Address) {
	if s.archiver == nil {
		return
	}
	view, err := s.Get(ctx, address)
	if err == nil {
		err = s.archiver.Archive(ctx, view)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to archive contest", slog.String("contest", address.String()), slog.Any("error", err))
	}
}
