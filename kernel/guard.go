package kernel

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// check is one precondition. It performs exactly one ledger read (cached
// registry parameters aside) and never mutates state.
type check struct {
	name string
	run  func(ctx context.Context) error
}

// Guard is the ordered list of checks gating one operation on one release.
// Run stops at the first failing check.
type Guard struct {
	Op      Operation
	Release common.Address
	Amount  *uint256.Int

	checks []check
}

// Checks returns the names of the guard's checks in evaluation order.
func (g *Guard) Checks() []string {
	names := make([]string, len(g.checks))
	for i, c := range g.checks {
		names[i] = c.name
	}
	return names
}

// Run evaluates the checks in order. It returns a *GuardError for a rejected
// request and the ledger's own error if a read fails.
func (g *Guard) Run(ctx context.Context) error {
	for _, c := range g.checks {
		if err := c.run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// GuardEngine builds and runs the guards for the caller identified by from.
type GuardEngine struct {
	registry Registry
	binder   Binder
	params   *ParamCache
	from     common.Address
}

// NewGuardEngine creates a guard engine reading registry state through
// registry and binder, and registry parameters through params.
func NewGuardEngine(registry Registry, binder Binder, params *ParamCache, from common.Address) *GuardEngine {
	return &GuardEngine{
		registry: registry,
		binder:   binder,
		params:   params,
		from:     from,
	}
}

// Guard returns the guard for op. Amount is ignored for OpRegister.
func (e *GuardEngine) Guard(op Operation, release common.Address, amount *uint256.Int) (*Guard, error) {
	g := &Guard{Op: op, Release: release}
	switch op {
	case OpRegister:
		// Eligibility is reported before funds.
		g.checks = []check{
			e.ifRegistered(release),
			e.ifNotFrozen(release),
			e.ifBalanceBelowCost(release),
		}
	case OpVouch:
		g.Amount = amountOrZero(amount)
		g.checks = []check{
			e.ifNotRegistered(release),
			e.ifBalanceBelow(release, g.Amount),
			e.ifBelowPayout(release, g.Amount),
		}
	case OpUnvouch:
		g.Amount = amountOrZero(amount)
		g.checks = []check{
			e.ifNotRegistered(release),
			e.ifVouchBelow(release, g.Amount),
		}
	default:
		return nil, fmt.Errorf("kernel: unknown operation %q", op)
	}
	return g, nil
}

// ValidateCanRegister checks that release is frozen, not yet registered, and
// that the caller holds enough tokens to pay the new version cost.
func (e *GuardEngine) ValidateCanRegister(ctx context.Context, release common.Address) error {
	g, _ := e.Guard(OpRegister, release, nil)
	return e.run(ctx, g)
}

// ValidateCanVouch checks that release is registered, that the caller holds
// amount tokens, and that amount yields a positive developer payout.
func (e *GuardEngine) ValidateCanVouch(ctx context.Context, release common.Address, amount *uint256.Int) error {
	g, _ := e.Guard(OpVouch, release, amount)
	return e.run(ctx, g)
}

// ValidateCanUnvouch checks that release is registered and that the caller
// vouched at least amount tokens for it.
func (e *GuardEngine) ValidateCanUnvouch(ctx context.Context, release common.Address, amount *uint256.Int) error {
	g, _ := e.Guard(OpUnvouch, release, amount)
	return e.run(ctx, g)
}

func (e *GuardEngine) run(ctx context.Context, g *Guard) error {
	err := g.Run(ctx)
	switch ge, ok := AsGuardError(err); {
	case err == nil:
		guardPassMeter.Mark(1)
	case ok:
		guardRejectMeter.Mark(1)
		log.Debug("Guard rejected operation", "op", g.Op, "release", g.Release, "from", e.from, "reason", ge.Kind)
	default:
		guardErrorMeter.Mark(1)
	}
	return err
}

func (e *GuardEngine) ifRegistered(release common.Address) check {
	return check{name: "registered", run: func(ctx context.Context) error {
		registered, err := e.registry.IsRegistered(ctx, release)
		if err != nil {
			return err
		}
		if registered {
			return newGuardError(AlreadyRegistered, release, nil, nil,
				"release %s is already registered", release.Hex())
		}
		return nil
	}}
}

func (e *GuardEngine) ifNotRegistered(release common.Address) check {
	return check{name: "registered", run: func(ctx context.Context) error {
		registered, err := e.registry.IsRegistered(ctx, release)
		if err != nil {
			return err
		}
		if !registered {
			return newGuardError(NotRegistered, release, nil, nil,
				"release %s is not registered yet", release.Hex())
		}
		return nil
	}}
}

func (e *GuardEngine) ifNotFrozen(release common.Address) check {
	return check{name: "frozen", run: func(ctx context.Context) error {
		frozen, err := e.binder.Release(release).Frozen(ctx)
		if err != nil {
			return err
		}
		if !frozen {
			return newGuardError(NotFrozen, release, nil, nil,
				"release %s must be frozen to be registered", release.Hex())
		}
		return nil
	}}
}

func (e *GuardEngine) ifBalanceBelowCost(release common.Address) check {
	return check{name: "balance", run: func(ctx context.Context) error {
		cost, err := e.params.NewVersionCost(ctx)
		if err != nil {
			return err
		}
		balance, err := e.balance(ctx)
		if err != nil {
			return err
		}
		if balance.Lt(cost) {
			return newGuardError(InsufficientBalance, release, cost, balance,
				"not enough tokens to register a new release: have %v, need %v", balance.ToBig(), cost.ToBig())
		}
		return nil
	}}
}

func (e *GuardEngine) ifBalanceBelow(release common.Address, amount *uint256.Int) check {
	return check{name: "balance", run: func(ctx context.Context) error {
		balance, err := e.balance(ctx)
		if err != nil {
			return err
		}
		if balance.Lt(amount) {
			return newGuardError(InsufficientBalance, release, amount, balance,
				"not enough tokens to vouch %v for release %s: have %v", amount.ToBig(), release.Hex(), balance.ToBig())
		}
		return nil
	}}
}

// ifBelowPayout rejects amounts whose integer developer share,
// amount / developerFraction, is zero. A zero fraction admits no payout.
func (e *GuardEngine) ifBelowPayout(release common.Address, amount *uint256.Int) check {
	return check{name: "payout", run: func(ctx context.Context) error {
		fraction, err := e.registry.DeveloperFraction(ctx)
		if err != nil {
			return err
		}
		payout := new(uint256.Int)
		if !fraction.IsZero() {
			payout.Div(amount, fraction)
		}
		if payout.IsZero() {
			return newGuardError(BelowMinimumPayout, release, amount, fraction,
				"vouching %v yields no developer payout: have to vouch %v tokens at least", amount.ToBig(), fraction.ToBig())
		}
		return nil
	}}
}

func (e *GuardEngine) ifVouchBelow(release common.Address, amount *uint256.Int) check {
	return check{name: "vouched", run: func(ctx context.Context) error {
		pool, err := e.params.VouchingAddress(ctx)
		if err != nil {
			return err
		}
		vouched, err := e.binder.VouchingPool(pool).VouchedFor(ctx, e.from, release)
		if err != nil {
			return err
		}
		if vouched.Lt(amount) {
			return newGuardError(InsufficientVouch, release, amount, vouched,
				"not enough vouched tokens to unvouch %v from release %s: have %v", amount.ToBig(), release.Hex(), vouched.ToBig())
		}
		return nil
	}}
}

func (e *GuardEngine) balance(ctx context.Context) (*uint256.Int, error) {
	token, err := e.params.TokenAddress(ctx)
	if err != nil {
		return nil, err
	}
	return e.binder.Token(token).BalanceOf(ctx, e.from)
}
