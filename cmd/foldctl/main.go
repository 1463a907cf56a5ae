// Command foldctl folds short peptide sequences from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/latticefold/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		// Pipeline errors were already rendered by the command; only
		// argument and flag problems still need printing.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			// cobra argument and flag parsing errors
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(cli.ExitCommandError)
		}
		if exitErr.Err == nil {
			fmt.Fprintln(os.Stderr, "Error:", exitErr.Message)
		}
		os.Exit(exitErr.Code)
	}
}
