package main

import (
	"os"

	"github.com/tanvirhossain/oporichita/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
