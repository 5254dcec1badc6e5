// gkernel registers releases in a kernel registry and vouches tokens for them.
package main

import (
	"os"

	"github.com/tos-network/gkernel/cmd/utils"
	"github.com/tos-network/gkernel/internal/flags"
	"github.com/urfave/cli/v2"
)

const (
	clientIdentifier = "gkernel" // Client identifier printed by the version command
)

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app = flags.NewApp(gitCommit, gitDate, "the kernel release registry command line interface")

func init() {
	app.Commands = []*cli.Command{
		registerCommand,
		vouchCommand,
		unvouchCommand,
		validateCommand,
		statusCommand,
		dumpConfigCommand,
		versionCommand,
		licenseCommand,
	}
	app.Flags = append(app.Flags, configFileFlag)
	app.Flags = append(app.Flags, utils.LedgerFlags...)
	app.Flags = append(app.Flags, utils.KernelFlags...)
	app.Flags = append(app.Flags, utils.VerbosityFlag, utils.MetricsEnabledFlag)

	app.Before = func(ctx *cli.Context) error {
		utils.SetupLogging(ctx)
		return nil
	}
	app.After = func(ctx *cli.Context) error {
		utils.WriteMetrics(ctx, os.Stderr)
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		utils.Fatalf("%v", err)
	}
}
