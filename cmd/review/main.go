package main

import (
	"os"

	"ai-codereview-be/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
