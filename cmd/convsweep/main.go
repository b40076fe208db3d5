// Package main is the entry point for convsweep.
package main

import (
	"context"
	"os"

	"convsweep/internal/cli"
)

func main() {
	os.Exit(cli.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
