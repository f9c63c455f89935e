package main

import (
	"os"

	"github.com/ndhoang/truyendl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
