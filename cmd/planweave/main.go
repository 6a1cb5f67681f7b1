package main

import (
	"os"

	"github.com/planweave/planweave/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
