package kernel

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	kernelAddr   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	tokenAddr    = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	vouchingAddr = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	callerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000aa")

	errLedgerDown = errors.New("ledger unreachable")
)

// tAddr generates a deterministic release address.
func tAddr(b byte) common.Address { return common.Address{19: b} }

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

type ledgerCall struct {
	method  string
	release common.Address
	spender common.Address
	amount  *uint256.Int
	data    []byte
	from    common.Address
}

// testLedger is an in-memory registry that counts every read and records
// every mutating call in order.
type testLedger struct {
	mu sync.Mutex

	cost     *uint256.Int
	fraction *uint256.Int

	registered map[common.Address]bool
	frozen     map[common.Address]bool
	balances   map[common.Address]*uint256.Int
	vouches    map[[2]common.Address]*uint256.Int
	allowance  *uint256.Int

	reads map[string]int
	fail  map[string]error
	calls []ledgerCall
	nonce uint64

	// readHook runs on every read with the lock released.
	readHook func(name string)
}

func newTestLedger() *testLedger {
	return &testLedger{
		cost:       u(100),
		fraction:   u(10),
		registered: make(map[common.Address]bool),
		frozen:     make(map[common.Address]bool),
		balances:   make(map[common.Address]*uint256.Int),
		vouches:    make(map[[2]common.Address]*uint256.Int),
		allowance:  new(uint256.Int),
		reads:      make(map[string]int),
		fail:       make(map[string]error),
	}
}

func (l *testLedger) read(name string) error {
	if l.readHook != nil {
		l.readHook(name)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads[name]++
	return l.fail[name]
}

func (l *testLedger) readCount(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads[name]
}

func (l *testLedger) setFail(name string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.fail, name)
		return
	}
	l.fail[name] = err
}

func (l *testLedger) methods() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	for i, c := range l.calls {
		out[i] = c.method
	}
	return out
}

func (l *testLedger) confirm(call ledgerCall) (*Confirmation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fail[call.method]; err != nil {
		return nil, err
	}
	l.calls = append(l.calls, call)
	l.nonce++
	return &Confirmation{TxHash: common.BigToHash(uint256.NewInt(0xf000 + l.nonce).ToBig()), Nonce: l.nonce - 1}, nil
}

func (l *testLedger) vouched(voucher, release common.Address) *uint256.Int {
	if v, ok := l.vouches[[2]common.Address{voucher, release}]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

func (l *testLedger) balance(account common.Address) *uint256.Int {
	if b, ok := l.balances[account]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

// Registry

func (l *testLedger) Address() common.Address { return kernelAddr }

func (l *testLedger) IsRegistered(_ context.Context, release common.Address) (bool, error) {
	if err := l.read("isRegistered"); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registered[release], nil
}

func (l *testLedger) DeveloperFraction(context.Context) (*uint256.Int, error) {
	if err := l.read("developerFraction"); err != nil {
		return nil, err
	}
	return l.fraction.Clone(), nil
}

func (l *testLedger) NewVersionCost(ctx context.Context) (*uint256.Int, error) {
	if err := l.read("newVersionCost"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.cost.Clone(), nil
}

func (l *testLedger) Token(context.Context) (common.Address, error) {
	if err := l.read("token"); err != nil {
		return common.Address{}, err
	}
	return tokenAddr, nil
}

func (l *testLedger) Vouches(context.Context) (common.Address, error) {
	if err := l.read("vouches"); err != nil {
		return common.Address{}, err
	}
	return vouchingAddr, nil
}

func (l *testLedger) Register(_ context.Context, release common.Address, tx TxContext) (*Confirmation, error) {
	conf, err := l.confirm(ledgerCall{method: "register", release: release, from: tx.From})
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registered[release] = true
	return conf, nil
}

func (l *testLedger) Vouch(_ context.Context, release common.Address, amount *uint256.Int, data []byte, tx TxContext) (*Confirmation, error) {
	conf, err := l.confirm(ledgerCall{method: "vouch", release: release, amount: amount.Clone(), data: data, from: tx.From})
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := [2]common.Address{tx.From, release}
	l.vouches[key] = new(uint256.Int).Add(l.vouched(tx.From, release), amount)
	l.balances[tx.From] = new(uint256.Int).Sub(l.balance(tx.From), amount)
	return conf, nil
}

func (l *testLedger) Unvouch(_ context.Context, release common.Address, amount *uint256.Int, data []byte, tx TxContext) (*Confirmation, error) {
	conf, err := l.confirm(ledgerCall{method: "unvouch", release: release, amount: amount.Clone(), data: data, from: tx.From})
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := [2]common.Address{tx.From, release}
	l.vouches[key] = new(uint256.Int).Sub(l.vouched(tx.From, release), amount)
	l.balances[tx.From] = new(uint256.Int).Add(l.balance(tx.From), amount)
	return conf, nil
}

// Binder

type testBinder struct{ l *testLedger }

func (b testBinder) Token(addr common.Address) Token               { return testToken{b.l} }
func (b testBinder) VouchingPool(addr common.Address) VouchingPool { return testPool{b.l} }
func (b testBinder) Release(addr common.Address) Release           { return testRelease{b.l, addr} }

type testToken struct{ l *testLedger }

func (t testToken) BalanceOf(_ context.Context, account common.Address) (*uint256.Int, error) {
	if err := t.l.read("balanceOf"); err != nil {
		return nil, err
	}
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	return t.l.balance(account), nil
}

func (t testToken) Approve(_ context.Context, spender common.Address, amount *uint256.Int, tx TxContext) (*Confirmation, error) {
	conf, err := t.l.confirm(ledgerCall{method: "approve", spender: spender, amount: amount.Clone(), from: tx.From})
	if err != nil {
		return nil, err
	}
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	t.l.allowance = amount.Clone()
	return conf, nil
}

type testPool struct{ l *testLedger }

func (p testPool) VouchedFor(_ context.Context, voucher, release common.Address) (*uint256.Int, error) {
	if err := p.l.read("vouchedFor"); err != nil {
		return nil, err
	}
	p.l.mu.Lock()
	defer p.l.mu.Unlock()
	return p.l.vouched(voucher, release), nil
}

func (p testPool) TotalVouchedFor(_ context.Context, release common.Address) (*uint256.Int, error) {
	if err := p.l.read("totalVouchedFor"); err != nil {
		return nil, err
	}
	p.l.mu.Lock()
	defer p.l.mu.Unlock()
	total := new(uint256.Int)
	for key, v := range p.l.vouches {
		if key[1] == release {
			total.Add(total, v)
		}
	}
	return total, nil
}

type testRelease struct {
	l    *testLedger
	addr common.Address
}

func (r testRelease) Frozen(context.Context) (bool, error) {
	if err := r.l.read("frozen"); err != nil {
		return false, err
	}
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	return r.l.frozen[r.addr], nil
}

// newTestKernel returns a kernel acting for callerAddr over a fresh ledger.
func newTestKernel() (*Kernel, *testLedger) {
	l := newTestLedger()
	return New(l, testBinder{l}, TxContext{From: callerAddr}), l
}
