package main

import (
	"os"

	"github.com/iandry357/jobpulse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
