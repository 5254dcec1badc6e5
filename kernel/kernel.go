package kernel

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// Kernel orchestrates release operations against a registry on behalf of
// one caller. Register, Vouch and Unvouch do not run guards; callers decide
// whether to validate first (see the ValidateAnd* helpers).
//
// A Kernel issues its ledger calls sequentially and holds no locks across
// them. It is safe for concurrent use, but concurrent operations from the
// same sender race on the sender's nonce at the transport.
type Kernel struct {
	registry Registry
	binder   Binder
	params   *ParamCache
	guards   *GuardEngine
	tx       TxContext
	log      log.Logger
}

// New creates a Kernel for registry, submitting transactions with tx.
func New(registry Registry, binder Binder, tx TxContext) *Kernel {
	params := NewParamCache(registry)
	return &Kernel{
		registry: registry,
		binder:   binder,
		params:   params,
		guards:   NewGuardEngine(registry, binder, params, tx.From),
		tx:       tx,
		log:      log.New("kernel", registry.Address()),
	}
}

// Guards exposes the kernel's guard engine.
func (k *Kernel) Guards() *GuardEngine { return k.guards }

// Register approves the new version cost to the registry and registers
// release.
func (k *Kernel) Register(ctx context.Context, release common.Address) (*Confirmation, error) {
	logger := k.opLogger(OpRegister)

	cost, err := k.params.NewVersionCost(ctx)
	if err != nil {
		return nil, err
	}
	if err := k.approve(ctx, logger, cost); err != nil {
		return nil, err
	}
	logger.Info("Registering release", "release", release)
	start := time.Now()
	conf, err := k.registry.Register(ctx, release, k.tx)
	if err != nil {
		submitFailMeter.Mark(1)
		return nil, err
	}
	submitTimer.UpdateSince(start)
	logger.Info("Release registered", "release", release, "tx", conf.TxHash)
	return conf, nil
}

// Vouch approves req.Amount to the registry and vouches it for req.Release.
func (k *Kernel) Vouch(ctx context.Context, req VouchRequest) (*Confirmation, error) {
	logger := k.opLogger(OpVouch)
	amount := amountOrZero(req.Amount)

	if err := k.approve(ctx, logger, amount); err != nil {
		return nil, err
	}
	logger.Info("Vouching tokens", "release", req.Release, "amount", amount.ToBig())
	start := time.Now()
	conf, err := k.registry.Vouch(ctx, req.Release, amount, req.payload(), k.tx)
	if err != nil {
		submitFailMeter.Mark(1)
		return nil, err
	}
	submitTimer.UpdateSince(start)
	logger.Info("Vouch processed", "release", req.Release, "tx", conf.TxHash)
	return conf, nil
}

// Unvouch withdraws req.Amount previously vouched for req.Release. Tokens
// flow back to the caller, so no approval is made.
func (k *Kernel) Unvouch(ctx context.Context, req VouchRequest) (*Confirmation, error) {
	logger := k.opLogger(OpUnvouch)
	amount := amountOrZero(req.Amount)

	logger.Info("Unvouching tokens", "release", req.Release, "amount", amount.ToBig())
	start := time.Now()
	conf, err := k.registry.Unvouch(ctx, req.Release, amount, req.payload(), k.tx)
	if err != nil {
		submitFailMeter.Mark(1)
		return nil, err
	}
	submitTimer.UpdateSince(start)
	logger.Info("Unvouch processed", "release", req.Release, "tx", conf.TxHash)
	return conf, nil
}

// ValidateCanRegister runs the register guard for release.
func (k *Kernel) ValidateCanRegister(ctx context.Context, release common.Address) error {
	return k.guards.ValidateCanRegister(ctx, release)
}

// ValidateCanVouch runs the vouch guard for release and amount.
func (k *Kernel) ValidateCanVouch(ctx context.Context, release common.Address, amount *uint256.Int) error {
	return k.guards.ValidateCanVouch(ctx, release, amount)
}

// ValidateCanUnvouch runs the unvouch guard for release and amount.
func (k *Kernel) ValidateCanUnvouch(ctx context.Context, release common.Address, amount *uint256.Int) error {
	return k.guards.ValidateCanUnvouch(ctx, release, amount)
}

// ValidateAndRegister runs the register guard and registers only if it passes.
func (k *Kernel) ValidateAndRegister(ctx context.Context, release common.Address) (*Confirmation, error) {
	if err := k.ValidateCanRegister(ctx, release); err != nil {
		return nil, err
	}
	return k.Register(ctx, release)
}

// ValidateAndVouch runs the vouch guard and vouches only if it passes.
func (k *Kernel) ValidateAndVouch(ctx context.Context, req VouchRequest) (*Confirmation, error) {
	if err := k.ValidateCanVouch(ctx, req.Release, req.Amount); err != nil {
		return nil, err
	}
	return k.Vouch(ctx, req)
}

// ValidateAndUnvouch runs the unvouch guard and unvouches only if it passes.
func (k *Kernel) ValidateAndUnvouch(ctx context.Context, req VouchRequest) (*Confirmation, error) {
	if err := k.ValidateCanUnvouch(ctx, req.Release, req.Amount); err != nil {
		return nil, err
	}
	return k.Unvouch(ctx, req)
}

func (k *Kernel) approve(ctx context.Context, logger log.Logger, amount *uint256.Int) error {
	tokenAddr, err := k.params.TokenAddress(ctx)
	if err != nil {
		return err
	}
	logger.Info("Approving tokens to kernel", "amount", amount.ToBig(), "token", tokenAddr)
	conf, err := k.binder.Token(tokenAddr).Approve(ctx, k.registry.Address(), amount, k.tx)
	if err != nil {
		return err
	}
	logger.Debug("Approval confirmed", "tx", conf.TxHash)
	return nil
}

func (k *Kernel) opLogger(op Operation) log.Logger {
	return k.log.New("op", op, "id", uuid.New().String()[:8])
}
