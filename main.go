package main

import (
	"os"

	"github.com/flarebyte/tracker-snapshot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
