package contest

import (
	"errors"
	"fmt"

	"github.com/Dosada05/run-contest/models"
)

// Code is a stable, machine-readable failure reason. Callers branch on it
// rather than on message text.
type Code string

const (
	CodeUnauthorized              Code = "Unauthorized"
	CodeEscrowCaller              Code = "EscrowCaller"
	CodeAlreadyStarted            Code = "AlreadyStarted"
	CodeAlreadyCanceled           Code = "AlreadyCanceled"
	CodeAlreadyWithdrawn          Code = "AlreadyWithdrawn"
	CodeAlreadyEnded              Code = "AlreadyEnded"
	CodeAlreadyCollected          Code = "AlreadyCollected"
	CodeContestCanceled           Code = "ContestCanceled"
	CodeNotStarted                Code = "NotStarted"
	CodeNotCanceled               Code = "NotCanceled"
	CodeContestNotOver            Code = "ContestNotOver"
	CodeWinnersNotSet             Code = "WinnersNotSet"
	CodeQuorumNotMet              Code = "QuorumNotMet"
	CodeDuplicateRunner           Code = "DuplicateRunner"
	CodeUnregisteredWinner        Code = "UnregisteredWinner"
	CodeDuplicateWinner           Code = "DuplicateWinner"
	CodeNotAWinner                Code = "NotAWinner"
	CodeNotEligibleForRefund      Code = "NotEligibleForRefund"
	CodeInsufficientQuorumConfig  Code = "InsufficientQuorumConfig"
	CodeInsufficientPayoutFunding Code = "InsufficientPayoutFunding"
	CodeInvalidParams             Code = "InvalidParams"
	CodeTransferFailed            Code = "TransferFailed"
	CodeInsufficientAllowance     Code = "InsufficientAllowance"
	CodeInsufficientBalance       Code = "InsufficientBalance"
	CodeDuplicateContest          Code = "DuplicateContest"
	CodeEmptyRegistry             Code = "EmptyRegistry"
)

// Error is an abort-with-reason failure. Every value below is a sentinel
// comparable with errors.Is.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrUnauthorized = &Error{CodeUnauthorized, "caller is not the owner"}
	ErrEscrowCaller = &Error{CodeEscrowCaller, "the contest escrow cannot act as a runner account"}

	ErrAlreadyStarted   = &Error{CodeAlreadyStarted, "already started"}
	ErrAlreadyCanceled  = &Error{CodeAlreadyCanceled, "already canceled"}
	ErrAlreadyWithdrawn = &Error{CodeAlreadyWithdrawn, "already withdrawn"}
	ErrAlreadyEnded     = &Error{CodeAlreadyEnded, "winners already set"}
	ErrAlreadyCollected = &Error{CodeAlreadyCollected, "winnings already collected"}
	ErrContestCanceled  = &Error{CodeContestCanceled, "contest must not be canceled"}
	ErrNotStarted       = &Error{CodeNotStarted, "not started"}
	ErrNotCanceled      = &Error{CodeNotCanceled, "refunds are only eligible when the contest is canceled"}
	ErrContestNotOver   = &Error{CodeContestNotOver, "contest must be over"}
	ErrWinnersNotSet    = &Error{CodeWinnersNotSet, "cannot claim until the winners are set"}

	ErrQuorumNotMet              = &Error{CodeQuorumNotMet, "not enough runners have registered"}
	ErrDuplicateRunner           = &Error{CodeDuplicateRunner, "runner already registered"}
	ErrUnregisteredWinner        = &Error{CodeUnregisteredWinner, "winners must be registered"}
	ErrDuplicateWinner           = &Error{CodeDuplicateWinner, "a runner can only hold one winning place"}
	ErrNotAWinner                = &Error{CodeNotAWinner, "only winners can collect"}
	ErrNotEligibleForRefund      = &Error{CodeNotEligibleForRefund, "this runner is ineligible for a refund"}
	ErrInsufficientQuorumConfig  = &Error{CodeInsufficientQuorumConfig, "must have at least three runners"}
	ErrInsufficientPayoutFunding = &Error{CodeInsufficientPayoutFunding, "entry fee must cover all payouts"}
	ErrInvalidParams             = &Error{CodeInvalidParams, "invalid contest parameters"}

	ErrTransferFailed        = &Error{CodeTransferFailed, "asset transfer failed"}
	ErrInsufficientAllowance = &Error{CodeInsufficientAllowance, "insufficient allowance"}
	ErrInsufficientBalance   = &Error{CodeInsufficientBalance, "insufficient balance"}
	ErrDuplicateContest      = &Error{CodeDuplicateContest, "contest already registered"}
	ErrEmptyRegistry         = &Error{CodeEmptyRegistry, "there are no contests"}
)

// CodeOf returns the reason code of the outermost contest error in err's
// chain, or "" when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UnregisteredWinnerError names the slot whose runner was never registered.
type UnregisteredWinnerError struct {
	Place  Place
	Runner models.RunnerID
}

func (e *UnregisteredWinnerError) Error() string {
	return fmt.Sprintf("%s: %s place runner %s", ErrUnregisteredWinner.Message, e.Place, e.Runner)
}

func (e *UnregisteredWinnerError) Unwrap() error { return ErrUnregisteredWinner }

func transferFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrTransferFailed, err)
}
