package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/spec/internal/errors"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	app := newCLIApp(defaultEnv())
	if err := app.Run(os.Args); err != nil {
		var exitErr cli.ExitCoder
		if stderrors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(errors.ExitCodeOf(err))
	}
}
