// Package main provides the lookahead CLI for exploring chess positions and
// emitting comment intents.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
