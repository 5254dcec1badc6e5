// Package contracts binds the kernel capability interfaces to contracts on an
// Ethereum-compatible ledger.
package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/tos-network/gkernel/kernel"
)

var (
	ErrNoSigner = errors.New("contracts: no transaction signer configured")
	ErrOverflow = errors.New("contracts: value does not fit in 256 bits")
	ErrTxFailed = errors.New("contracts: transaction failed")
)

// Backend is the ledger connection contracts are bound over. An
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// contract is a bound contract handle plus the signer used for transactions.
type contract struct {
	address common.Address
	backend Backend
	bound   *bind.BoundContract
	signer  bind.SignerFn
}

func newContract(address common.Address, parsed abi.ABI, backend Backend, signer bind.SignerFn) *contract {
	return &contract{
		address: address,
		backend: backend,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
		signer:  signer,
	}
}

func (c *contract) call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("contracts: %s returned no values", method)
	}
	return out[0], nil
}

func (c *contract) callBool(ctx context.Context, method string, args ...interface{}) (bool, error) {
	out, err := c.call(ctx, method, args...)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out, new(bool)).(*bool), nil
}

func (c *contract) callAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	out, err := c.call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out, new(common.Address)).(*common.Address), nil
}

func (c *contract) callUint(ctx context.Context, method string, args ...interface{}) (*uint256.Int, error) {
	out, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return fromBig(abi.ConvertType(out, new(big.Int)).(*big.Int))
}

// transact submits method without waiting for it to be mined.
func (c *contract) transact(ctx context.Context, tx kernel.TxContext, method string, args ...interface{}) (*kernel.Confirmation, error) {
	sent, err := c.send(ctx, tx, method, args...)
	if err != nil {
		return nil, err
	}
	return confirmation(sent), nil
}

// transactMined submits method and returns once the ledger has included it.
// A reverted transaction yields ErrTxFailed.
func (c *contract) transactMined(ctx context.Context, tx kernel.TxContext, method string, args ...interface{}) (*kernel.Confirmation, error) {
	sent, err := c.send(ctx, tx, method, args...)
	if err != nil {
		return nil, err
	}
	receipt, err := bind.WaitMined(ctx, c.backend, sent)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s %s", ErrTxFailed, method, sent.Hash().Hex())
	}
	return confirmation(sent), nil
}

func (c *contract) send(ctx context.Context, tx kernel.TxContext, method string, args ...interface{}) (*types.Transaction, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	opts := &bind.TransactOpts{
		From:     tx.From,
		Signer:   c.signer,
		GasLimit: tx.GasLimit,
		GasPrice: tx.GasPrice,
		Context:  ctx,
	}
	return c.bound.Transact(opts, method, args...)
}

func confirmation(tx *types.Transaction) *kernel.Confirmation {
	return &kernel.Confirmation{TxHash: tx.Hash(), Nonce: tx.Nonce()}
}

func fromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	out, overflow := uint256.FromBig(v)
	if overflow || v.Sign() < 0 {
		return nil, ErrOverflow
	}
	return out, nil
}

func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}
