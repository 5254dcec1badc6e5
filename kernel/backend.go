package kernel

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ParamSource serves the registry parameters that ParamCache memoizes.
type ParamSource interface {
	Token(ctx context.Context) (common.Address, error)
	Vouches(ctx context.Context) (common.Address, error)
	NewVersionCost(ctx context.Context) (*uint256.Int, error)
}

// Registry is the kernel registry contract. It owns release registration
// state, the registry parameters and the three mutating release operations.
type Registry interface {
	ParamSource

	// Address is the registry location; approvals are granted to it.
	Address() common.Address

	IsRegistered(ctx context.Context, release common.Address) (bool, error)
	DeveloperFraction(ctx context.Context) (*uint256.Int, error)

	Register(ctx context.Context, release common.Address, tx TxContext) (*Confirmation, error)
	Vouch(ctx context.Context, release common.Address, amount *uint256.Int, data []byte, tx TxContext) (*Confirmation, error)
	Unvouch(ctx context.Context, release common.Address, amount *uint256.Int, data []byte, tx TxContext) (*Confirmation, error)
}

// Token is the fungible token the registry charges and vouches in.
type Token interface {
	BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error)

	// Approve sets spender's allowance to amount. It returns once the ledger
	// has applied the approval.
	Approve(ctx context.Context, spender common.Address, amount *uint256.Int, tx TxContext) (*Confirmation, error)
}

// VouchingPool tracks how many tokens each account vouched for a release.
type VouchingPool interface {
	VouchedFor(ctx context.Context, voucher, release common.Address) (*uint256.Int, error)
	TotalVouchedFor(ctx context.Context, release common.Address) (*uint256.Int, error)
}

// Release is a single release record.
type Release interface {
	Frozen(ctx context.Context) (bool, error)
}

// Binder constructs typed handles for contracts whose location is only known
// at runtime (the token and vouching pool announced by the registry, and the
// releases named by callers).
type Binder interface {
	Token(addr common.Address) Token
	VouchingPool(addr common.Address) VouchingPool
	Release(addr common.Address) Release
}
