package contracts

import (
	"errors"
	"fmt"
	"maps"
	"math/big"
	"sync"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	testChainID      = big.NewInt(1337)
	testKernelAddr   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	testTokenAddr    = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	testVouchingAddr = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Input *hexutil.Bytes  `json:"input"`
	Data  *hexutil.Bytes  `json:"data"`
}

func (a callArgs) calldata() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

type sentCall struct {
	From   common.Address
	To     common.Address
	Method string
	Args   []interface{}
}

// ledgerService serves the eth namespace for the kernel, token, vouching
// pool and release contracts, decoding calldata with the real ABIs.
type ledgerService struct {
	mu sync.Mutex

	abis       map[common.Address]abi.ABI
	cost       *big.Int
	fraction   *big.Int
	registered map[common.Address]bool
	frozen     map[common.Address]bool
	balances   map[common.Address]*big.Int
	allowances map[[2]common.Address]*big.Int
	vouches    map[[2]common.Address]*big.Int
	nonces     map[common.Address]uint64

	// With manual set, transactions stay pending until mined. Receipt
	// queries report a pending transaction missing once and then mine.
	manual    bool
	pending   []*types.Transaction
	receipts  map[common.Hash]*types.Receipt
	estimates int

	reverts mapset.Set[string]
	invoked mapset.Set[string]
	sent    []sentCall
	callErr error
}

func newLedgerService() *ledgerService {
	return &ledgerService{
		abis: map[common.Address]abi.ABI{
			testKernelAddr:   kernelABI,
			testTokenAddr:    tokenABI,
			testVouchingAddr: vouchingABI,
		},
		cost:       ether(5),
		fraction:   big.NewInt(10),
		registered: make(map[common.Address]bool),
		frozen:     make(map[common.Address]bool),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[[2]common.Address]*big.Int),
		vouches:    make(map[[2]common.Address]*big.Int),
		nonces:     make(map[common.Address]uint64),
		receipts:   make(map[common.Hash]*types.Receipt),
		reverts:    mapset.NewSet[string](),
		invoked:    mapset.NewSet[string](),
	}
}

// fork copies the contract state for a dry run.
func (s *ledgerService) fork() *ledgerService {
	return &ledgerService{
		abis:       maps.Clone(s.abis),
		cost:       s.cost,
		fraction:   s.fraction,
		registered: maps.Clone(s.registered),
		frozen:     maps.Clone(s.frozen),
		balances:   maps.Clone(s.balances),
		allowances: maps.Clone(s.allowances),
		vouches:    maps.Clone(s.vouches),
		nonces:     maps.Clone(s.nonces),
		reverts:    s.reverts,
		invoked:    mapset.NewSet[string](),
	}
}

func (s *ledgerService) addRelease(addr common.Address, frozen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abis[addr] = releaseABI
	s.frozen[addr] = frozen
}

func (s *ledgerService) Call(args callArgs, block string) (hexutil.Bytes, error) {
	if args.To == nil {
		return nil, errors.New("missing call target")
	}
	var from common.Address
	if args.From != nil {
		from = *args.From
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callErr != nil {
		return nil, s.callErr
	}
	return s.exec(from, *args.To, args.calldata(), false)
}

// EstimateGas runs the call against mined state only.
func (s *ledgerService) EstimateGas(args callArgs) (hexutil.Uint64, error) {
	if args.To == nil {
		return 0, errors.New("missing call target")
	}
	var from common.Address
	if args.From != nil {
		from = *args.From
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimates++
	if _, err := s.fork().exec(from, *args.To, args.calldata(), true); err != nil {
		return 0, err
	}
	return 100_000, nil
}

func (s *ledgerService) GetCode(addr common.Address, block string) hexutil.Bytes {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.abis[addr]; ok {
		return hexutil.Bytes{0x60, 0x80}
	}
	return hexutil.Bytes{}
}

func (s *ledgerService) GetTransactionReceipt(hash common.Hash) *types.Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.receipts[hash]; ok {
		return r
	}
	s.mineLocked()
	return nil
}

func (s *ledgerService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(testChainID)
}

func (s *ledgerService) GetTransactionCount(addr common.Address, block string) hexutil.Uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hexutil.Uint64(s.nonces[addr])
}

func (s *ledgerService) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	from, err := types.Sender(types.LatestSignerForChainID(testChainID), tx)
	if err != nil {
		return common.Hash{}, err
	}
	if tx.To() == nil {
		return common.Hash{}, errors.New("contract creation not supported")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.Nonce() != s.nonces[from] {
		return common.Hash{}, fmt.Errorf("nonce mismatch: have %d, want %d", tx.Nonce(), s.nonces[from])
	}
	if s.manual {
		s.nonces[from]++
		s.pending = append(s.pending, tx)
		return tx.Hash(), nil
	}
	if _, err := s.exec(from, *tx.To(), tx.Data(), true); err != nil {
		return common.Hash{}, err
	}
	s.nonces[from]++
	s.receipts[tx.Hash()] = newReceipt(tx, types.ReceiptStatusSuccessful)
	return tx.Hash(), nil
}

// mine includes every pending transaction in submission order. Reverted
// transactions get a failed receipt and leave the state untouched.
func (s *ledgerService) mine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mineLocked()
}

func (s *ledgerService) mineLocked() {
	signer := types.LatestSignerForChainID(testChainID)
	for _, tx := range s.pending {
		status := types.ReceiptStatusSuccessful
		from, err := types.Sender(signer, tx)
		if err == nil {
			_, err = s.exec(from, *tx.To(), tx.Data(), true)
		}
		if err != nil {
			status = types.ReceiptStatusFailed
		}
		s.receipts[tx.Hash()] = newReceipt(tx, status)
	}
	s.pending = nil
}

func newReceipt(tx *types.Transaction, status uint64) *types.Receipt {
	return &types.Receipt{
		Type:              tx.Type(),
		Status:            status,
		CumulativeGasUsed: 21_000,
		Logs:              []*types.Log{},
		TxHash:            tx.Hash(),
		GasUsed:           21_000,
		BlockNumber:       big.NewInt(1),
	}
}

func (s *ledgerService) exec(from, to common.Address, input []byte, write bool) ([]byte, error) {
	parsed, ok := s.abis[to]
	if !ok {
		return nil, fmt.Errorf("no contract at %s", to.Hex())
	}
	if len(input) < 4 {
		return nil, errors.New("calldata too short")
	}
	method, err := parsed.MethodById(input[:4])
	if err != nil {
		return nil, err
	}
	if write == method.IsConstant() {
		return nil, fmt.Errorf("%s: wrong call kind", method.Name)
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, err
	}
	s.invoked.Add(method.Name)
	out, err := s.apply(from, to, method.Name, args)
	if err != nil {
		return nil, err
	}
	if write {
		s.sent = append(s.sent, sentCall{From: from, To: to, Method: method.Name, Args: args})
	}
	return method.Outputs.Pack(out...)
}

func (s *ledgerService) apply(from, to common.Address, method string, args []interface{}) ([]interface{}, error) {
	if s.reverts.Contains(method) {
		return nil, errors.New("execution reverted")
	}
	switch method {
	case "isRegistered":
		return []interface{}{s.registered[args[0].(common.Address)]}, nil
	case "developerFraction":
		return []interface{}{s.fraction}, nil
	case "newVersionCost":
		return []interface{}{s.cost}, nil
	case "token":
		return []interface{}{testTokenAddr}, nil
	case "vouches":
		return []interface{}{testVouchingAddr}, nil
	case "register":
		if err := s.spend(from, s.cost); err != nil {
			return nil, err
		}
		s.registered[args[0].(common.Address)] = true
		return nil, nil
	case "vouch":
		release, amount := args[0].(common.Address), args[1].(*big.Int)
		if err := s.spend(from, amount); err != nil {
			return nil, err
		}
		key := [2]common.Address{from, release}
		s.vouches[key] = new(big.Int).Add(get(s.vouches, key), amount)
		return nil, nil
	case "unvouch":
		release, amount := args[0].(common.Address), args[1].(*big.Int)
		key := [2]common.Address{from, release}
		if get(s.vouches, key).Cmp(amount) < 0 {
			return nil, errors.New("execution reverted")
		}
		s.vouches[key] = new(big.Int).Sub(get(s.vouches, key), amount)
		s.balances[from] = new(big.Int).Add(balance(s.balances, from), amount)
		return nil, nil
	case "balanceOf":
		return []interface{}{balance(s.balances, args[0].(common.Address))}, nil
	case "approve":
		s.allowances[[2]common.Address{from, args[0].(common.Address)}] = args[1].(*big.Int)
		return []interface{}{true}, nil
	case "vouchedFor":
		return []interface{}{get(s.vouches, [2]common.Address{args[0].(common.Address), args[1].(common.Address)})}, nil
	case "totalVouchedFor":
		total := new(big.Int)
		for key, v := range s.vouches {
			if key[1] == args[0].(common.Address) {
				total.Add(total, v)
			}
		}
		return []interface{}{total}, nil
	case "frozen":
		return []interface{}{s.frozen[to]}, nil
	}
	return nil, fmt.Errorf("unhandled method %s", method)
}

// spend moves amount from the owner to the kernel through the owner's allowance.
func (s *ledgerService) spend(owner common.Address, amount *big.Int) error {
	key := [2]common.Address{owner, testKernelAddr}
	if get(s.allowances, key).Cmp(amount) < 0 {
		return errors.New("execution reverted: allowance exceeded")
	}
	if balance(s.balances, owner).Cmp(amount) < 0 {
		return errors.New("execution reverted: balance exceeded")
	}
	s.allowances[key] = new(big.Int).Sub(get(s.allowances, key), amount)
	s.balances[owner] = new(big.Int).Sub(balance(s.balances, owner), amount)
	return nil
}

func (s *ledgerService) calls() []sentCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentCall(nil), s.sent...)
}

func get(m map[[2]common.Address]*big.Int, key [2]common.Address) *big.Int {
	if v, ok := m[key]; ok {
		return v
	}
	return new(big.Int)
}

func balance(m map[common.Address]*big.Int, addr common.Address) *big.Int {
	if v, ok := m[addr]; ok {
		return v
	}
	return new(big.Int)
}

func newTestBackend(t *testing.T) (*ethclient.Client, *ledgerService) {
	t.Helper()
	server := rpc.NewServer()
	service := newLedgerService()
	if err := server.RegisterName("eth", service); err != nil {
		t.Fatalf("register service: %v", err)
	}
	client := ethclient.NewClient(rpc.DialInProc(server))
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return client, service
}
