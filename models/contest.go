package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContestStatus is derived from the lifecycle flags; it is never stored.
type ContestStatus string

const (
	StatusRegistering ContestStatus = "registering"
	StatusStarted     ContestStatus = "started"
	StatusEnded       ContestStatus = "ended"
	StatusCanceled    ContestStatus = "canceled"
)

// ContestParams are the construction parameters of a contest. All of them
// are immutable once the contest is deployed, except Description.
type ContestParams struct {
	Asset             Address         `json:"asset" yaml:"asset"`
	ContestLengthDays int             `json:"contest_length_days" yaml:"length_days"`
	MinRunners        int             `json:"min_runners" yaml:"min_runners"`
	EntryFee          decimal.Decimal `json:"entry_fee" yaml:"-"`
	PayoutFirst       decimal.Decimal `json:"payout_first" yaml:"-"`
	PayoutSecond      decimal.Decimal `json:"payout_second" yaml:"-"`
	PayoutThird       decimal.Decimal `json:"payout_third" yaml:"-"`
	Mode              string          `json:"mode" yaml:"mode"`
	Description       string          `json:"description" yaml:"description"`
}

// PayoutSum is the total owed to the three winners.
func (p ContestParams) PayoutSum() decimal.Decimal {
	return p.PayoutFirst.Add(p.PayoutSecond).Add(p.PayoutThird)
}

// Contest is the persisted state of a single competition.
type Contest struct {
	Address Address `json:"address" db:"address"`
	Owner   Address `json:"owner" db:"owner"`
	ContestParams

	Started        bool       `json:"started" db:"started"`
	Canceled       bool       `json:"canceled" db:"canceled"`
	Withdrawn      bool       `json:"withdrawn" db:"withdrawn"`
	Ended          bool       `json:"ended" db:"ended"`
	StartTimestamp *time.Time `json:"start_timestamp,omitempty" db:"start_ts"`
	EndTimestamp   *time.Time `json:"end_timestamp,omitempty" db:"end_ts"`
	WinnerFirst    *RunnerID  `json:"winner_first,omitempty" db:"winner_first"`
	WinnerSecond   *RunnerID  `json:"winner_second,omitempty" db:"winner_second"`
	WinnerThird    *RunnerID  `json:"winner_third,omitempty" db:"winner_third"`

	ResultsDueNotified bool      `json:"-" db:"results_due_notified"`
	ArchiveKey         *string   `json:"-" db:"archive_key"`
	ArchiveURL         *string   `json:"archive_url,omitempty" db:"-"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

func (c *Contest) Status() ContestStatus {
	switch {
	case c.Canceled:
		return StatusCanceled
	case c.Ended:
		return StatusEnded
	case c.Started:
		return StatusStarted
	default:
		return StatusRegistering
	}
}

// Registration records the account that paid for a runner id and the
// per-runner claim guards.
type Registration struct {
	Contest      Address   `json:"contest" db:"contest"`
	RunnerID     RunnerID  `json:"runner_id" db:"runner_id"`
	Account      Address   `json:"account" db:"account"`
	Collected    bool      `json:"collected" db:"collected"`
	Refunded     bool      `json:"refunded" db:"refunded"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

// ContestView is the full read model of a contest.
type ContestView struct {
	*Contest
	Status        ContestStatus   `json:"status"`
	NumRunners    int             `json:"num_runners"`
	EscrowBalance decimal.Decimal `json:"escrow_balance"`
	Registrations []Registration  `json:"registrations"`
}

// ContestEvent is published to live subscribers after an operation commits.
type ContestEvent struct {
	Type       string      `json:"type"`
	Contest    Address     `json:"contest"`
	Payload    interface{} `json:"payload,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

const (
	EventContestDeployed   = "contest.deployed"
	EventDescriptionSet    = "contest.description_set"
	EventRunnerRegistered  = "contest.runner_registered"
	EventContestCanceled   = "contest.canceled"
	EventContestStarted    = "contest.started"
	EventOwnerWithdrew     = "contest.withdrawn"
	EventContestEnded      = "contest.ended"
	EventWinningsCollected = "contest.winnings_collected"
	EventRefundProcessed   = "contest.refund_processed"
	EventResultsDue        = "contest.results_due"
)
