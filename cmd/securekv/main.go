// Package main provides the entry point for securekv.
//
// securekv reads and writes an encrypted, expiring key-value store from
// the command line and can run the expiry sweeper as a daemon.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/securekv/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, command.FormatError(err))
		os.Exit(1)
	}
}
