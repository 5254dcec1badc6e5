package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// KernelABI is the input ABI of the kernel registry contract.
const KernelABI = `[
	{"type":"function","name":"isRegistered","stateMutability":"view","inputs":[{"name":"release","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"developerFraction","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"newVersionCost","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"token","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"vouches","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"register","stateMutability":"nonpayable","inputs":[{"name":"release","type":"address"}],"outputs":[]},
	{"type":"function","name":"vouch","stateMutability":"nonpayable","inputs":[{"name":"release","type":"address"},{"name":"amount","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"unvouch","stateMutability":"nonpayable","inputs":[{"name":"release","type":"address"},{"name":"amount","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]}
]`

// TokenABI is the ERC-20 subset the kernel needs.
const TokenABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// VouchingABI is the input ABI of the vouching pool.
const VouchingABI = `[
	{"type":"function","name":"vouchedFor","stateMutability":"view","inputs":[{"name":"voucher","type":"address"},{"name":"release","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalVouchedFor","stateMutability":"view","inputs":[{"name":"release","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// ReleaseABI is the input ABI of a release record.
const ReleaseABI = `[
	{"type":"function","name":"frozen","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	kernelABI   = mustParseABI(KernelABI)
	tokenABI    = mustParseABI(TokenABI)
	vouchingABI = mustParseABI(VouchingABI)
	releaseABI  = mustParseABI(ReleaseABI)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
