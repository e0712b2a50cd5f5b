package main

import (
	"os"

	"github.com/quantlab/backtest/cmd/backtest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
