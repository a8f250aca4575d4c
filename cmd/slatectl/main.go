// Command slatectl is a thin HTTP client for the federation API (§6): every
// subcommand issues one request against the same routes a human operator or
// another service would call directly, and prints the response body.
package main

import (
	"fmt"
	"os"

	"github.com/slateci/slate-federation/cmd/slatectl/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
