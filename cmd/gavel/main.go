package main

import (
	"os"

	"github.com/gavelhq/gavel/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
