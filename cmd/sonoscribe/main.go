// Package main is the entry point for the sonoscribe CLI.
//
// Usage:
//
//	sonoscribe [flags] <command> [subcommand] [args]
//
// Commands:
//
//	run       - Run the dictation daemon (hotkey capture loop)
//	enroll    - Enroll a speaker from a WAV file or the microphone
//	speakers  - Manage enrolled speaker profiles (list, rename, re-enroll, rm)
//	meetings  - Browse saved meeting records (list, show, rm)
//	version   - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/sonoscribe/sonoscribe/cmd/sonoscribe/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
