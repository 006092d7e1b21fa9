package main

import (
	"os"

	"github.com/covlight/covlight/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args, os.Stdout, os.Stderr))
}
