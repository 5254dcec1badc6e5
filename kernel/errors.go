package kernel

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// GuardKind classifies why a guard rejected an operation.
type GuardKind uint8

const (
	AlreadyRegistered GuardKind = iota + 1
	NotFrozen
	InsufficientBalance
	NotRegistered
	BelowMinimumPayout
	InsufficientVouch
)

var guardKindNames = map[GuardKind]string{
	AlreadyRegistered:   "already registered",
	NotFrozen:           "not frozen",
	InsufficientBalance: "insufficient balance",
	NotRegistered:       "not registered",
	BelowMinimumPayout:  "below minimum payout",
	InsufficientVouch:   "insufficient vouch",
}

func (k GuardKind) String() string {
	if name, ok := guardKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("guard kind %d", uint8(k))
}

// GuardError is returned when a guard rejects an operation. It is a decision
// about the request, never a ledger failure; ledger failures are returned
// unmodified and are not GuardErrors.
type GuardError struct {
	Kind    GuardKind
	Release common.Address
	Amount  *uint256.Int // requested amount, nil for register
	Have    *uint256.Int // balance, vouch or fraction the amount was held against
	msg     string
}

func (e *GuardError) Error() string {
	if e.msg == "" {
		return "kernel: " + e.Kind.String()
	}
	return e.msg
}

// Is matches any GuardError of the same kind, so the package sentinels work
// with errors.Is.
func (e *GuardError) Is(target error) bool {
	t, ok := target.(*GuardError)
	return ok && t.Kind == e.Kind
}

// Sentinel guard errors, for use with errors.Is.
var (
	ErrAlreadyRegistered   = &GuardError{Kind: AlreadyRegistered}
	ErrNotFrozen           = &GuardError{Kind: NotFrozen}
	ErrInsufficientBalance = &GuardError{Kind: InsufficientBalance}
	ErrNotRegistered       = &GuardError{Kind: NotRegistered}
	ErrBelowMinimumPayout  = &GuardError{Kind: BelowMinimumPayout}
	ErrInsufficientVouch   = &GuardError{Kind: InsufficientVouch}
)

// IsGuardFailure reports whether err carries a guard rejection, as opposed to
// a failure to reach or read the ledger.
func IsGuardFailure(err error) bool {
	var ge *GuardError
	return errors.As(err, &ge)
}

// AsGuardError extracts the guard rejection from err, if any.
func AsGuardError(err error) (*GuardError, bool) {
	var ge *GuardError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

func newGuardError(kind GuardKind, release common.Address, amount, have *uint256.Int, format string, args ...interface{}) *GuardError {
	return &GuardError{
		Kind:    kind,
		Release: release,
		Amount:  amount,
		Have:    have,
		msg:     fmt.Sprintf(format, args...),
	}
}
