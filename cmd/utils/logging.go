package utils

import (
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

// SetupLogging installs the root terminal logger at the verbosity selected on
// the command line. Colour is used only when stderr is a terminal.
func SetupLogging(ctx *cli.Context) {
	useColor := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
	var output io.Writer = os.Stderr
	if useColor {
		output = colorable.NewColorableStderr()
	}
	installLogger(output, ctx.Int(VerbosityFlag.Name), useColor)
}

func installLogger(w io.Writer, verbosity int, useColor bool) {
	level := log.FromLegacyLevel(verbosity)
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(w, level, useColor)))
}
