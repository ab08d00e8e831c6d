package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
)

// Version is set at build time
var Version = "dev"

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(Version),
	); err != nil {
		os.Exit(1)
	}
}
