package main

import (
	"os"

	"github.com/hobbotdev/hobbot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
