package main

import (
	"os"

	"github.com/TheAmanM/next-client/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
