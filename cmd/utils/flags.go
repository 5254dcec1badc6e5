// Copyright 2015 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// Package utils contains internal helper functions for gkernel commands.
package utils

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/tos-network/gkernel/internal/flags"
	"github.com/tos-network/gkernel/kernelclient"
	"github.com/urfave/cli/v2"
)

var (
	// Ledger connection settings
	RPCEndpointFlag = &cli.StringFlag{
		Name:     "rpc.endpoint",
		Usage:    "JSON-RPC endpoint of the ledger the kernel is deployed on",
		Value:    kernelclient.DefaultConfig.Endpoint,
		Category: flags.LedgerCategory,
	}
	RPCJWTSecretFlag = &cli.StringFlag{
		Name:     "rpc.jwtsecret",
		Usage:    "Path to a hex encoded 32 byte secret used to authenticate to the endpoint",
		Category: flags.LedgerCategory,
	}
	RPCTimeoutFlag = &cli.DurationFlag{
		Name:     "rpc.timeout",
		Usage:    "Timeout of a single ledger request",
		Value:    kernelclient.DefaultConfig.RequestTimeout,
		Category: flags.LedgerCategory,
	}

	// Kernel settings
	KernelAddressFlag = &cli.StringFlag{
		Name:     "kernel",
		Usage:    "Address of the kernel registry contract",
		Category: flags.KernelCategory,
	}

	// Account settings
	FromFlag = &cli.StringFlag{
		Name:     "from",
		Usage:    "Account to act for (defaults to the keyfile account)",
		Category: flags.AccountCategory,
	}
	KeyFileFlag = &cli.StringFlag{
		Name:     "keyfile",
		Usage:    "Encrypted keyfile used to sign transactions",
		Category: flags.AccountCategory,
	}
	PasswordFileFlag = &cli.StringFlag{
		Name:     "passwordfile",
		Usage:    "The file that contains the password for the keyfile",
		Category: flags.AccountCategory,
	}

	// Transaction settings
	GasLimitFlag = &cli.Uint64Flag{
		Name:     "gas.limit",
		Usage:    "Gas limit of submitted transactions (0 = estimate)",
		Category: flags.TransactionCategory,
	}
	GasPriceFlag = &cli.StringFlag{
		Name:     "gas.price",
		Usage:    "Gas price in wei of submitted transactions (empty = ledger suggestion)",
		Category: flags.TransactionCategory,
	}
	DryRunFlag = &cli.BoolFlag{
		Name:     "dry-run",
		Usage:    "Only run the operation's checks, submit nothing",
		Category: flags.TransactionCategory,
	}
	SkipChecksFlag = &cli.BoolFlag{
		Name:     "skip-checks",
		Usage:    "Submit without running the operation's checks first",
		Category: flags.TransactionCategory,
	}
	DataFlag = &cli.StringFlag{
		Name:     "data",
		Usage:    "Hex encoded payload attached to a vouch or unvouch",
		Category: flags.TransactionCategory,
	}

	// Logging
	VerbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    3,
		Category: flags.LoggingCategory,
	}

	// Metrics collection is switched on by the metrics package when it
	// finds --metrics on the command line; the flag only has to parse.
	MetricsEnabledFlag = &cli.BoolFlag{
		Name:     "metrics",
		Usage:    "Enable metrics collection and print them on exit",
		Category: flags.MetricsCategory,
	}
)

// LedgerFlags configure the ledger connection.
var LedgerFlags = []cli.Flag{
	RPCEndpointFlag,
	RPCJWTSecretFlag,
	RPCTimeoutFlag,
}

// KernelFlags select the kernel and the account acting on it.
var KernelFlags = []cli.Flag{
	KernelAddressFlag,
	FromFlag,
	KeyFileFlag,
	PasswordFileFlag,
	GasLimitFlag,
	GasPriceFlag,
}

// SetLedgerConfig applies ledger related command line flags to the config.
func SetLedgerConfig(ctx *cli.Context, cfg *kernelclient.Config) {
	if ctx.IsSet(RPCEndpointFlag.Name) {
		cfg.Endpoint = ctx.String(RPCEndpointFlag.Name)
	}
	if ctx.IsSet(RPCJWTSecretFlag.Name) {
		cfg.JWTSecretFile = ctx.String(RPCJWTSecretFlag.Name)
	}
	if ctx.IsSet(RPCTimeoutFlag.Name) {
		cfg.RequestTimeout = ctx.Duration(RPCTimeoutFlag.Name)
	}
}

// ParseAddress decodes a hex encoded address given for the named option.
func ParseAddress(name, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("option %q: invalid address %q", name, value)
	}
	return common.HexToAddress(value), nil
}

// ParseGasPrice decodes a decimal wei amount, returning nil for an empty value.
func ParseGasPrice(value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	price, ok := new(big.Int).SetString(value, 10)
	if !ok || price.Sign() < 0 {
		return nil, fmt.Errorf("option %q: invalid gas price %q", GasPriceFlag.Name, value)
	}
	return price, nil
}

// WriteMetrics prints the collected metrics to w when --metrics is set.
func WriteMetrics(ctx *cli.Context, w io.Writer) {
	if ctx.Bool(MetricsEnabledFlag.Name) && metrics.Enabled {
		metrics.WriteOnce(metrics.DefaultRegistry, w)
	}
}
