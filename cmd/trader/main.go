// Command trader runs Kiwoom REST API strategies from the command line.
package main

import (
	"os"

	"kiwoom-trader/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
