// Package contest implements the fee-funded competition state machine and
// the registry that orders contests.
//
// A Contest escrows entry fees on an Asset, lets its owner withdraw the
// surplus over the three fixed payouts once it starts, and pays winners or
// refunds registrants depending on how it terminates. Every operation checks
// all of its guards first, then moves value, then flips flags, so a failed
// call leaves both the state and the escrow untouched.
//
// Contests are not safe for concurrent use. Callers serialize operations per
// instance.
package contest

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/run-contest/models"
	"github.com/shopspring/decimal"
)

// Place is a winning slot.
type Place int

const (
	PlaceFirst Place = iota + 1
	PlaceSecond
	PlaceThird
)

func (p Place) String() string {
	switch p {
	case PlaceFirst:
		return "first"
	case PlaceSecond:
		return "second"
	case PlaceThird:
		return "third"
	default:
		return fmt.Sprintf("place(%d)", int(p))
	}
}

// Payout describes value that left the escrow.
type Payout struct {
	Runner  models.RunnerID `json:"runner_id"`
	Account models.Address  `json:"account"`
	Place   Place           `json:"place,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

type Contest struct {
	state *models.Contest
	regs  map[models.RunnerID]*models.Registration
	order []models.RunnerID
	dirty map[models.RunnerID]bool
	asset Asset
	clock Clock
}

// New deploys a contest owned by owner, escrowing on asset at address.
func New(address, owner models.Address, params models.ContestParams, asset Asset, clock Clock) (*Contest, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	if !address.Valid() || !owner.Valid() {
		return nil, fmt.Errorf("%w: address and owner are required", ErrInvalidParams)
	}
	if clock == nil {
		clock = SystemClock
	}
	now := clock.Now()
	state := &models.Contest{
		Address:       address,
		Owner:         owner,
		ContestParams: params,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return Load(state, nil, asset, clock), nil
}

// Load rehydrates a contest from persisted state. regs must be in
// registration order.
func Load(state *models.Contest, regs []models.Registration, asset Asset, clock Clock) *Contest {
	if clock == nil {
		clock = SystemClock
	}
	c := &Contest{
		state: state,
		regs:  make(map[models.RunnerID]*models.Registration, len(regs)),
		order: make([]models.RunnerID, 0, len(regs)),
		dirty: make(map[models.RunnerID]bool),
		asset: asset,
		clock: clock,
	}
	for i := range regs {
		r := regs[i]
		c.regs[r.RunnerID] = &r
		c.order = append(c.order, r.RunnerID)
	}
	return c
}

// State returns a copy of the contest's scalar state.
func (c *Contest) State() *models.Contest {
	s := *c.state
	return &s
}

func (c *Contest) Address() models.Address { return c.state.Address }
func (c *Contest) Owner() models.Address   { return c.state.Owner }
func (c *Contest) NumRunners() int         { return len(c.order) }

// Registrations returns every registration in registration order.
func (c *Contest) Registrations() []models.Registration {
	out := make([]models.Registration, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.regs[id])
	}
	return out
}

func (c *Contest) Registration(runner models.RunnerID) (models.Registration, bool) {
	r, ok := c.regs[runner]
	if !ok {
		return models.Registration{}, false
	}
	return *r, true
}

// DirtyRegistrations returns registrations created or modified since Load.
func (c *Contest) DirtyRegistrations() []models.Registration {
	var out []models.Registration
	for _, id := range c.order {
		if c.dirty[id] {
			out = append(out, *c.regs[id])
		}
	}
	return out
}

// SetDescription replaces the free-form description.
func (c *Contest) SetDescription(caller models.Address, text string) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	c.state.Description = text
	c.touch()
	return nil
}

// RegisterRunner pulls the entry fee from caller and records caller as the
// account behind runner. One account may register many runner ids.
func (c *Contest) RegisterRunner(ctx context.Context, caller models.Address, runner models.RunnerID) error {
	if caller == c.state.Address {
		return ErrEscrowCaller
	}
	if c.state.Canceled {
		return ErrContestCanceled
	}
	if c.state.Started {
		return ErrAlreadyStarted
	}
	if _, ok := c.regs[runner]; ok {
		return ErrDuplicateRunner
	}
	if err := c.asset.TransferFrom(ctx, c.state.Address, caller, c.state.Address, c.state.EntryFee); err != nil {
		return transferFailed(err)
	}
	c.regs[runner] = &models.Registration{
		Contest:      c.state.Address,
		RunnerID:     runner,
		Account:      caller,
		RegisteredAt: c.clock.Now(),
	}
	c.order = append(c.order, runner)
	c.dirty[runner] = true
	c.touch()
	return nil
}

// Cancel moves an unstarted contest into the refund lifecycle. A second call
// fails with ErrAlreadyCanceled.
func (c *Contest) Cancel(caller models.Address) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	if c.state.Started {
		return ErrAlreadyStarted
	}
	if c.state.Canceled {
		return ErrAlreadyCanceled
	}
	c.state.Canceled = true
	c.touch()
	return nil
}

// Start closes registration and fixes the start and end timestamps.
func (c *Contest) Start(caller models.Address) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	if c.state.Canceled {
		return ErrContestCanceled
	}
	if c.state.Started {
		return ErrAlreadyStarted
	}
	if len(c.order) < c.state.MinRunners {
		return ErrQuorumNotMet
	}
	start := c.clock.Now().UTC().Truncate(time.Second)
	end := start.Add(time.Duration(c.state.ContestLengthDays) * secondsPerDay * time.Second)
	c.state.Started = true
	c.state.StartTimestamp = &start
	c.state.EndTimestamp = &end
	c.touch()
	return nil
}

// Withdraw sends the owner every collected entry fee beyond the payouts.
// It is available as soon as the contest starts.
func (c *Contest) Withdraw(ctx context.Context, caller models.Address) (Payout, error) {
	if err := c.onlyOwner(caller); err != nil {
		return Payout{}, err
	}
	if !c.state.Started {
		return Payout{}, ErrNotStarted
	}
	if c.state.Withdrawn {
		return Payout{}, ErrAlreadyWithdrawn
	}
	surplus := c.collectedFees().Sub(c.state.PayoutSum())
	if err := c.asset.Transfer(ctx, c.state.Address, c.state.Owner, surplus); err != nil {
		return Payout{}, transferFailed(err)
	}
	c.state.Withdrawn = true
	c.touch()
	return Payout{Account: c.state.Owner, Amount: surplus}, nil
}

// End records the three winners once the contest period is over.
func (c *Contest) End(caller models.Address, first, second, third models.RunnerID) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	if !c.state.Started {
		return ErrNotStarted
	}
	if c.state.Ended {
		return ErrAlreadyEnded
	}
	if c.clock.Now().Before(*c.state.EndTimestamp) {
		return ErrContestNotOver
	}
	winners := [3]models.RunnerID{first, second, third}
	for i, id := range winners {
		if _, ok := c.regs[id]; !ok {
			return &UnregisteredWinnerError{Place: Place(i + 1), Runner: id}
		}
	}
	if first == second || first == third || second == third {
		return ErrDuplicateWinner
	}
	c.state.WinnerFirst = &winners[0]
	c.state.WinnerSecond = &winners[1]
	c.state.WinnerThird = &winners[2]
	c.state.Ended = true
	c.touch()
	return nil
}

// CollectWinnings pays a winner's fixed payout to the account that
// registered it. Anyone may trigger it.
func (c *Contest) CollectWinnings(ctx context.Context, runner models.RunnerID) (Payout, error) {
	if !c.state.Ended {
		return Payout{}, ErrWinnersNotSet
	}
	place := c.PlaceOf(runner)
	if place == 0 {
		return Payout{}, ErrNotAWinner
	}
	reg := c.regs[runner]
	if reg.Collected {
		return Payout{}, ErrAlreadyCollected
	}
	amount := c.payout(place)
	if err := c.asset.Transfer(ctx, c.state.Address, reg.Account, amount); err != nil {
		return Payout{}, transferFailed(err)
	}
	reg.Collected = true
	c.dirty[runner] = true
	c.touch()
	return Payout{Runner: runner, Account: reg.Account, Place: place, Amount: amount}, nil
}

// ProcessRefund returns the entry fee of a runner of a canceled contest to
// the account that registered it. Anyone may trigger it.
func (c *Contest) ProcessRefund(ctx context.Context, runner models.RunnerID) (Payout, error) {
	if !c.state.Canceled {
		return Payout{}, ErrNotCanceled
	}
	reg, ok := c.regs[runner]
	if !ok || reg.Refunded {
		return Payout{}, ErrNotEligibleForRefund
	}
	if err := c.asset.Transfer(ctx, c.state.Address, reg.Account, c.state.EntryFee); err != nil {
		return Payout{}, transferFailed(err)
	}
	reg.Refunded = true
	c.dirty[runner] = true
	c.touch()
	return Payout{Runner: runner, Account: reg.Account, Amount: c.state.EntryFee}, nil
}

// PlaceOf reports the slot runner won, or 0. It is meaningful only once the
// winners are set.
func (c *Contest) PlaceOf(runner models.RunnerID) Place {
	if !c.state.Ended {
		return 0
	}
	switch runner {
	case *c.state.WinnerFirst:
		return PlaceFirst
	case *c.state.WinnerSecond:
		return PlaceSecond
	case *c.state.WinnerThird:
		return PlaceThird
	}
	return 0
}

// ExpectedEscrow is the balance the escrow account must hold given the
// current state.
func (c *Contest) ExpectedEscrow() decimal.Decimal {
	held := decimal.Zero
	for _, id := range c.order {
		reg := c.regs[id]
		if !reg.Refunded {
			held = held.Add(c.state.EntryFee)
		}
		if reg.Collected {
			held = held.Sub(c.payout(c.PlaceOf(id)))
		}
	}
	if c.state.Withdrawn {
		held = held.Sub(c.collectedFees().Sub(c.state.PayoutSum()))
	}
	return held
}

func (c *Contest) payout(p Place) decimal.Decimal {
	switch p {
	case PlaceFirst:
		return c.state.PayoutFirst
	case PlaceSecond:
		return c.state.PayoutSecond
	case PlaceThird:
		return c.state.PayoutThird
	}
	return decimal.Zero
}

func (c *Contest) collectedFees() decimal.Decimal {
	return c.state.EntryFee.Mul(decimal.NewFromInt(int64(len(c.order))))
}

func (c *Contest) onlyOwner(caller models.Address) error {
	if caller != c.state.Owner {
		return ErrUnauthorized
	}
	return nil
}

func (c *Contest) touch() {
	c.state.UpdatedAt = c.clock.Now()
}
