// Copyright 2017 The go-ethereum Authors
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

package main

import (
	"bufio"
	"errors"
	"fmt"
	"math/big"
	"os"
	"reflect"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
	"github.com/tos-network/gkernel/cmd/utils"
	"github.com/tos-network/gkernel/contracts"
	"github.com/tos-network/gkernel/internal/flags"
	"github.com/tos-network/gkernel/kernelclient"
	"github.com/urfave/cli/v2"
)

var (
	dumpConfigCommand = &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Export configuration values in a TOML format",
		ArgsUsage:   "<dumpfile (optional)>",
		Description: `Export configuration values in TOML format (to stdout by default).`,
	}

	configFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.MiscCategory,
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// kernelConfig selects the registry and the account acting on it.
type kernelConfig struct {
	Address      common.Address
	From         common.Address `toml:",omitempty"`
	KeyFile      string         `toml:",omitempty"`
	PasswordFile string         `toml:",omitempty"`
	GasLimit     uint64         `toml:",omitempty"`
	GasPrice     *big.Int       `toml:",omitempty"`
	HandleCache  int
}

var defaultKernelConfig = kernelConfig{
	HandleCache: contracts.DefaultHandleCache,
}

type gkernelConfig struct {
	Node   kernelclient.Config
	Kernel kernelConfig
}

func loadConfig(file string, cfg *gkernelConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file, if any, and applies command line
// flags on top of it.
func makeConfig(ctx *cli.Context) (*gkernelConfig, error) {
	cfg := &gkernelConfig{
		Node:   kernelclient.DefaultConfig,
		Kernel: defaultKernelConfig,
	}
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, cfg); err != nil {
			return nil, err
		}
	}
	utils.SetLedgerConfig(ctx, &cfg.Node)
	if err := setKernelConfig(ctx, &cfg.Kernel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setKernelConfig(ctx *cli.Context, cfg *kernelConfig) error {
	if ctx.IsSet(utils.KernelAddressFlag.Name) {
		addr, err := utils.ParseAddress(utils.KernelAddressFlag.Name, ctx.String(utils.KernelAddressFlag.Name))
		if err != nil {
			return err
		}
		cfg.Address = addr
	}
	if ctx.IsSet(utils.FromFlag.Name) {
		addr, err := utils.ParseAddress(utils.FromFlag.Name, ctx.String(utils.FromFlag.Name))
		if err != nil {
			return err
		}
		cfg.From = addr
	}
	if ctx.IsSet(utils.KeyFileFlag.Name) {
		cfg.KeyFile = ctx.String(utils.KeyFileFlag.Name)
	}
	if ctx.IsSet(utils.PasswordFileFlag.Name) {
		cfg.PasswordFile = ctx.String(utils.PasswordFileFlag.Name)
	}
	if ctx.IsSet(utils.GasLimitFlag.Name) {
		cfg.GasLimit = ctx.Uint64(utils.GasLimitFlag.Name)
	}
	if ctx.IsSet(utils.GasPriceFlag.Name) {
		price, err := utils.ParseGasPrice(ctx.String(utils.GasPriceFlag.Name))
		if err != nil {
			return err
		}
		cfg.GasPrice = price
	}
	return nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	_, err = dump.Write(out)
	return err
}
