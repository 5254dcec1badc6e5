// Package kernel gates the lifecycle of releases in a token-gated registry.
//
// A release is registered once it has been frozen, after which accounts may
// vouch tokens for it and later unvouch them. Every mutating operation has a
// matching guard (ValidateCanRegister, ValidateCanVouch, ValidateCanUnvouch)
// that reads ledger state and fails fast with a *GuardError before any fee is
// spent on submission. Guards are advisory: the ledger re-validates at the
// point of mutation, and state may change between a guard and the operation.
package kernel

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Operation identifies a mutating release operation.
type Operation string

const (
	OpRegister Operation = "register"
	OpVouch    Operation = "vouch"
	OpUnvouch  Operation = "unvouch"
)

// Operations lists every operation in a stable order.
var Operations = []Operation{OpRegister, OpVouch, OpUnvouch}

// TxContext carries the caller identity and transport parameters. It is
// handed unchanged to every mutating ledger call; guards only read From.
type TxContext struct {
	From     common.Address
	GasLimit uint64   // zero lets the transport estimate
	GasPrice *big.Int // nil lets the transport suggest one
}

// Confirmation is the result of a submitted mutating call.
type Confirmation struct {
	TxHash common.Hash
	Nonce  uint64
}

func (c *Confirmation) String() string {
	return c.TxHash.Hex()
}

// VouchRequest describes a vouch or unvouch. Data is optional; nil is sent
// as an empty payload.
type VouchRequest struct {
	Release common.Address
	Amount  *uint256.Int
	Data    []byte
}

func (r VouchRequest) payload() []byte {
	if r.Data == nil {
		return []byte{}
	}
	return r.Data
}

// ReleaseStatus is a point-in-time view of a release and of the caller's
// position in it.
type ReleaseStatus struct {
	Release      common.Address
	Registered   bool
	Frozen       bool
	TotalVouched *uint256.Int

	Account common.Address
	Balance *uint256.Int
	Vouched *uint256.Int

	NewVersionCost    *uint256.Int
	DeveloperFraction *uint256.Int
}

// Stage reports where the release sits in the registration state machine.
func (s *ReleaseStatus) Stage() string {
	switch {
	case s.Registered:
		return "registered"
	case s.Frozen:
		return "frozen"
	default:
		return "unfrozen"
	}
}

func amountOrZero(a *uint256.Int) *uint256.Int {
	if a == nil {
		return new(uint256.Int)
	}
	return a
}
