package contracts

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/tos-network/gkernel/kernel"
)

// DefaultHandleCache is the number of bound handles a Binder keeps.
const DefaultHandleCache = 256

type handleKind uint8

const (
	tokenHandle handleKind = iota
	vouchingHandle
	releaseHandle
)

type handleKey struct {
	kind handleKind
	addr common.Address
}

// Binder creates contract handles for addresses learned at runtime. Handles
// are stateless apart from their address, so recently used ones are kept in
// an ARC cache and shared.
type Binder struct {
	backend Backend
	signer  bind.SignerFn
	handles *lru.ARCCache // handleKey -> *contract
}

var _ kernel.Binder = (*Binder)(nil)

// NewBinder creates a Binder over backend. signer is used by the handles
// that submit transactions and may be nil for read-only use.
func NewBinder(backend Backend, signer bind.SignerFn, cacheSize int) (*Binder, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultHandleCache
	}
	handles, err := lru.NewARC(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Binder{backend: backend, signer: signer, handles: handles}, nil
}

// Kernel binds the registry at addr with the binder's backend and signer.
func (b *Binder) Kernel(addr common.Address) *Kernel {
	return NewKernel(addr, b.backend, b.signer)
}

func (b *Binder) Token(addr common.Address) kernel.Token {
	return &Token{c: b.handle(tokenHandle, addr)}
}

func (b *Binder) VouchingPool(addr common.Address) kernel.VouchingPool {
	return &Vouching{c: b.handle(vouchingHandle, addr)}
}

func (b *Binder) Release(addr common.Address) kernel.Release {
	return &Release{c: b.handle(releaseHandle, addr)}
}

// Cached reports how many handles are currently held.
func (b *Binder) Cached() int { return b.handles.Len() }

func (b *Binder) handle(kind handleKind, addr common.Address) *contract {
	key := handleKey{kind, addr}
	if c, ok := b.handles.Get(key); ok {
		return c.(*contract)
	}
	var c *contract
	switch kind {
	case tokenHandle:
		c = newContract(addr, tokenABI, b.backend, b.signer)
	case vouchingHandle:
		c = newContract(addr, vouchingABI, b.backend, b.signer)
	default:
		c = newContract(addr, releaseABI, b.backend, b.signer)
	}
	b.handles.Add(key, c)
	return c
}
