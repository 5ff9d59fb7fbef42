// Package main is the entry point for the streamid application.
package main

import (
	"os"

	"github.com/afylking/streamid/cmd/streamid/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
