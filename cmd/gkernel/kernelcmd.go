package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/olekukonko/tablewriter"
	"github.com/tos-network/gkernel/cmd/utils"
	"github.com/tos-network/gkernel/contracts"
	"github.com/tos-network/gkernel/internal/flags"
	"github.com/tos-network/gkernel/kernel"
	"github.com/tos-network/gkernel/kernelclient"
	"github.com/tos-network/gkernel/params"
	"github.com/urfave/cli/v2"
)

var errNoKernel = errors.New("no kernel address configured (use --kernel or the config file)")

var (
	operationFlags = []cli.Flag{
		utils.DryRunFlag,
		utils.SkipChecksFlag,
	}

	registerCommand = &cli.Command{
		Action:    registerRelease,
		Name:      "register",
		Usage:     "Register a frozen release, paying the new version cost",
		ArgsUsage: "<release>",
		Flags:     operationFlags,
		Description: `
Approves the kernel's new version cost to the kernel and registers the release.
The release must be frozen and not yet registered.`,
	}
	vouchCommand = &cli.Command{
		Action:    vouchRelease,
		Name:      "vouch",
		Usage:     "Vouch tokens for a registered release",
		ArgsUsage: "<release> <amount>",
		Flags:     append([]cli.Flag{utils.DataFlag}, operationFlags...),
		Description: `
Approves the amount to the kernel and vouches it for the release. Amounts are
in base units, or in whole tokens with a "zep" suffix (e.g. 1.5zep).`,
	}
	unvouchCommand = &cli.Command{
		Action:    unvouchRelease,
		Name:      "unvouch",
		Usage:     "Withdraw tokens previously vouched for a release",
		ArgsUsage: "<release> <amount>",
		Flags:     append([]cli.Flag{utils.DataFlag}, operationFlags...),
	}
	validateCommand = &cli.Command{
		Name:        "validate",
		Usage:       "Check whether an operation would be accepted, without submitting it",
		Subcommands: validateSubcommands(),
	}
	statusCommand = &cli.Command{
		Action:    releaseStatus,
		Name:      "status",
		Usage:     "Show the state of a release and the account's position in it",
		ArgsUsage: "<release>",
	}
)

// session is an open ledger connection with a kernel bound over it.
type session struct {
	client *kernelclient.Client
	kernel *kernel.Kernel
}

func (s *session) Close() { s.client.Close() }

// openSession dials the ledger and binds the configured kernel. A signer is
// loaded when a keyfile is configured, and required when sign is set.
func openSession(ctx *cli.Context, sign bool) (*session, error) {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Kernel.Address == (common.Address{}) {
		return nil, errNoKernel
	}
	if sign && cfg.Kernel.KeyFile == "" {
		return nil, fmt.Errorf("a keyfile is required to submit transactions (use --%s)", utils.KeyFileFlag.Name)
	}
	client, err := kernelclient.Dial(ctx.Context, cfg.Node)
	if err != nil {
		return nil, err
	}
	from, signer, err := loadSigner(ctx.Context, client, &cfg.Kernel)
	if err != nil {
		client.Close()
		return nil, err
	}
	binder, err := contracts.NewBinder(client, signer, cfg.Kernel.HandleCache)
	if err != nil {
		client.Close()
		return nil, err
	}
	tx := kernel.TxContext{From: from, GasLimit: cfg.Kernel.GasLimit, GasPrice: cfg.Kernel.GasPrice}
	return &session{
		client: client,
		kernel: kernel.New(binder.Kernel(cfg.Kernel.Address), binder, tx),
	}, nil
}

func loadSigner(ctx context.Context, client *kernelclient.Client, cfg *kernelConfig) (common.Address, bind.SignerFn, error) {
	if cfg.KeyFile == "" {
		return cfg.From, nil, nil
	}
	key, err := utils.LoadKey(cfg.KeyFile, cfg.PasswordFile)
	if err != nil {
		return common.Address{}, nil, err
	}
	if cfg.From != (common.Address{}) && cfg.From != key.Address {
		return common.Address{}, nil, fmt.Errorf("keyfile account %s does not match --%s %s", key.Address, utils.FromFlag.Name, cfg.From)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to retrieve chain id: %w", err)
	}
	log.Debug("Loaded signer", "account", key.Address, "chainid", chainID)
	return utils.NewSigner(key, chainID)
}

// operationArgs are the positional arguments of an operation.
type operationArgs struct {
	release common.Address
	amount  *uint256.Int
	data    []byte
}

func parseOperationArgs(ctx *cli.Context, op kernel.Operation) (*operationArgs, error) {
	want := 2
	if op == kernel.OpRegister {
		want = 1
	}
	if ctx.NArg() != want {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", op, want, ctx.NArg())
	}
	release, err := utils.ParseAddress("release", ctx.Args().Get(0))
	if err != nil {
		return nil, err
	}
	args := &operationArgs{release: release}
	if want == 2 {
		if args.amount, err = params.ParseAmount(ctx.Args().Get(1)); err != nil {
			return nil, fmt.Errorf("invalid amount: %w", err)
		}
	}
	if raw := ctx.String(utils.DataFlag.Name); raw != "" {
		if args.data, err = hexutil.Decode(raw); err != nil {
			return nil, fmt.Errorf("option %q: %w", utils.DataFlag.Name, err)
		}
	}
	return args, nil
}

func registerRelease(ctx *cli.Context) error { return runOperation(ctx, kernel.OpRegister) }
func vouchRelease(ctx *cli.Context) error    { return runOperation(ctx, kernel.OpVouch) }
func unvouchRelease(ctx *cli.Context) error  { return runOperation(ctx, kernel.OpUnvouch) }

// runOperation checks and submits op. With --dry-run only the checks run;
// with --skip-checks only the submission does.
func runOperation(ctx *cli.Context, op kernel.Operation) error {
	if err := flags.CheckExclusive(ctx, utils.DryRunFlag, utils.SkipChecksFlag); err != nil {
		return err
	}
	args, err := parseOperationArgs(ctx, op)
	if err != nil {
		return err
	}
	dryRun := ctx.Bool(utils.DryRunFlag.Name)
	s, err := openSession(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer s.Close()

	if !ctx.Bool(utils.SkipChecksFlag.Name) {
		if err := validate(ctx.Context, s.kernel, op, args); err != nil {
			return verdict(os.Stdout, op, args.release, err)
		}
		if dryRun {
			return verdict(os.Stdout, op, args.release, nil)
		}
	}
	conf, err := submit(ctx.Context, s.kernel, op, args)
	if err != nil {
		return err
	}
	fmt.Printf("Transaction: %s (nonce %d)\n", conf.TxHash.Hex(), conf.Nonce)
	return nil
}

// validateSubcommands builds one check per kernel operation.
func validateSubcommands() []*cli.Command {
	cmds := make([]*cli.Command, 0, len(kernel.Operations))
	for _, op := range kernel.Operations {
		argsUsage := "<release> <amount>"
		if op == kernel.OpRegister {
			argsUsage = "<release>"
		}
		cmds = append(cmds, &cli.Command{
			Name:      string(op),
			Usage:     fmt.Sprintf("Check whether a %s would be accepted", op),
			ArgsUsage: argsUsage,
			Action:    validateOperation(op),
		})
	}
	return cmds
}

func validateOperation(op kernel.Operation) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		args, err := parseOperationArgs(ctx, op)
		if err != nil {
			return err
		}
		s, err := openSession(ctx, false)
		if err != nil {
			return err
		}
		defer s.Close()
		return verdict(os.Stdout, op, args.release, validate(ctx.Context, s.kernel, op, args))
	}
}

func validate(ctx context.Context, k *kernel.Kernel, op kernel.Operation, args *operationArgs) error {
	switch op {
	case kernel.OpRegister:
		return k.ValidateCanRegister(ctx, args.release)
	case kernel.OpVouch:
		return k.ValidateCanVouch(ctx, args.release, args.amount)
	default:
		return k.ValidateCanUnvouch(ctx, args.release, args.amount)
	}
}

func submit(ctx context.Context, k *kernel.Kernel, op kernel.Operation, args *operationArgs) (*kernel.Confirmation, error) {
	req := kernel.VouchRequest{Release: args.release, Amount: args.amount, Data: args.data}
	switch op {
	case kernel.OpRegister:
		return k.Register(ctx, args.release)
	case kernel.OpVouch:
		return k.Vouch(ctx, req)
	default:
		return k.Unvouch(ctx, req)
	}
}

// verdict reports the outcome of a check. Rejections exit with status 1,
// other errors are returned unchanged.
func verdict(w io.Writer, op kernel.Operation, release common.Address, err error) error {
	switch {
	case err == nil:
		color.New(color.FgGreen).Fprintf(w, "%s of %s would be accepted\n", op, release.Hex())
		return nil
	case kernel.IsGuardFailure(err):
		return cli.Exit(color.RedString("%s of %s rejected: %v", op, release.Hex(), err), 1)
	default:
		return err
	}
}

func releaseStatus(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("status takes 1 argument, got %d", ctx.NArg())
	}
	release, err := utils.ParseAddress("release", ctx.Args().First())
	if err != nil {
		return err
	}
	s, err := openSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.kernel.Status(ctx.Context, release)
	if err != nil {
		return err
	}
	renderStatus(os.Stdout, st)
	return nil
}

func renderStatus(w io.Writer, st *kernel.ReleaseStatus) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk([][]string{
		{"Release", st.Release.Hex()},
		{"Stage", st.Stage()},
		{"Registered", strconv.FormatBool(st.Registered)},
		{"Frozen", strconv.FormatBool(st.Frozen)},
		{"Total vouched", params.FormatAmount(st.TotalVouched)},
		{"Account", st.Account.Hex()},
		{"Balance", params.FormatAmount(st.Balance)},
		{"Vouched", params.FormatAmount(st.Vouched)},
		{"New version cost", params.FormatAmount(st.NewVersionCost)},
		{"Developer fraction", st.DeveloperFraction.ToBig().String()},
	})
	table.Render()
}
