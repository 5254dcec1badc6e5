package contracts

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/tos-network/gkernel/kernel"
)

// Kernel is the kernel registry contract.
type Kernel struct {
	c *contract
}

var _ kernel.Registry = (*Kernel)(nil)

// NewKernel binds the registry deployed at address. signer may be nil for a
// read-only handle.
func NewKernel(address common.Address, backend Backend, signer bind.SignerFn) *Kernel {
	return &Kernel{c: newContract(address, kernelABI, backend, signer)}
}

func (k *Kernel) Address() common.Address { return k.c.address }

func (k *Kernel) IsRegistered(ctx context.Context, release common.Address) (bool, error) {
	return k.c.callBool(ctx, "isRegistered", release)
}

func (k *Kernel) DeveloperFraction(ctx context.Context) (*uint256.Int, error) {
	return k.c.callUint(ctx, "developerFraction")
}

func (k *Kernel) NewVersionCost(ctx context.Context) (*uint256.Int, error) {
	return k.c.callUint(ctx, "newVersionCost")
}

func (k *Kernel) Token(ctx context.Context) (common.Address, error) {
	return k.c.callAddress(ctx, "token")
}

func (k *Kernel) Vouches(ctx context.Context) (common.Address, error) {
	return k.c.callAddress(ctx, "vouches")
}

func (k *Kernel) Register(ctx context.Context, release common.Address, tx kernel.TxContext) (*kernel.Confirmation, error) {
	return k.c.transact(ctx, tx, "register", release)
}

func (k *Kernel) Vouch(ctx context.Context, release common.Address, amount *uint256.Int, data []byte, tx kernel.TxContext) (*kernel.Confirmation, error) {
	return k.c.transact(ctx, tx, "vouch", release, toBig(amount), nonNil(data))
}

func (k *Kernel) Unvouch(ctx context.Context, release common.Address, amount *uint256.Int, data []byte, tx kernel.TxContext) (*kernel.Confirmation, error) {
	return k.c.transact(ctx, tx, "unvouch", release, toBig(amount), nonNil(data))
}

// Token is an ERC-20 token contract.
type Token struct {
	c *contract
}

func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	return t.c.callUint(ctx, "balanceOf", account)
}

// Approve sets spender's allowance to amount and waits until the approval is
// mined, so that calls spending the allowance see it.
func (t *Token) Approve(ctx context.Context, spender common.Address, amount *uint256.Int, tx kernel.TxContext) (*kernel.Confirmation, error) {
	return t.c.transactMined(ctx, tx, "approve", spender, toBig(amount))
}

// Vouching is the vouching pool contract.
type Vouching struct {
	c *contract
}

func (v *Vouching) VouchedFor(ctx context.Context, voucher, release common.Address) (*uint256.Int, error) {
	return v.c.callUint(ctx, "vouchedFor", voucher, release)
}

func (v *Vouching) TotalVouchedFor(ctx context.Context, release common.Address) (*uint256.Int, error) {
	return v.c.callUint(ctx, "totalVouchedFor", release)
}

// Release is a release record contract.
type Release struct {
	c *contract
}

func (r *Release) Frozen(ctx context.Context) (bool, error) {
	return r.c.callBool(ctx, "frozen")
}

func nonNil(data []byte) []byte {
	if data == nil {
		return []byte{}
	}
	return data
}
