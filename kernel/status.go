package kernel

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Status reads a snapshot of release and of the caller's position in it.
// The reads are independent and issued concurrently, so the snapshot is not
// atomic with respect to the ledger.
func (k *Kernel) Status(ctx context.Context, release common.Address) (*ReleaseStatus, error) {
	st := &ReleaseStatus{Release: release, Account: k.tx.From}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Registered, err = k.registry.IsRegistered(gctx, release)
		return err
	})
	g.Go(func() (err error) {
		st.Frozen, err = k.binder.Release(release).Frozen(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.NewVersionCost, err = k.params.NewVersionCost(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.DeveloperFraction, err = k.registry.DeveloperFraction(gctx)
		return err
	})
	g.Go(func() error {
		token, err := k.params.TokenAddress(gctx)
		if err != nil {
			return err
		}
		st.Balance, err = k.binder.Token(token).BalanceOf(gctx, k.tx.From)
		return err
	})
	g.Go(func() error {
		pool, err := k.params.VouchingAddress(gctx)
		if err != nil {
			return err
		}
		vouching := k.binder.VouchingPool(pool)
		if st.Vouched, err = vouching.VouchedFor(gctx, k.tx.From, release); err != nil {
			return err
		}
		st.TotalVouched, err = vouching.TotalVouchedFor(gctx, release)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}
