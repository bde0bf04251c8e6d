// Package main provides the entry point for the wayfarer CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/wayfarer/cmd/wayfarer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
