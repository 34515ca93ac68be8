package main

import (
	"os"

	"github.com/rustyeddy/readiness/cmd/readiness/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
