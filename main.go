package main

import (
	"os"

	"github.com/eveflow/eveflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
