// Package cmd provides CLI commands for the ferry binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags.
var (
	// ConfigFlag points at a ferry.yaml config file. Flags always override
	// config values.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to ferry.yaml config file",
	}

	// QuietFlag suppresses the result summary on stdout.
	QuietFlag = &cli.BoolFlag{
		Name:  "quiet",
		Usage: "Suppress result output",
	}

	// TUIFlag enables the Bubble Tea progress view.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Show an interactive progress view",
	}
)
