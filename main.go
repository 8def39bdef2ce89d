package main

import (
	"fmt"
	"os"

	"croprec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "croprec: %v\n", err)
		os.Exit(1)
	}
}
