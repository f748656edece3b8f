package main

import (
	"fmt"
	"os"

	"github.com/abdallahh166/TowerOps-sub002/cmd/worker/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
