package main

// Main entry point of the application
// Initializes and executes Cobra commands

import (
	"fmt"
	"os"

	"dex-sniper/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
