// Package main provides the entry point for the DirtyWaters CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitError carries a process exit code up to Execute. The run command uses
// it to distinguish an interrupted run (130, the conventional SIGINT status)
// from a fatal error (1).
type exitError struct {
	code int
	err  error
}

// Error implements the error interface.
func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

// Unwrap returns the wrapped error.
func (e *exitError) Unwrap() error {
	return e.err
}

// NewRootCmd creates the root command for DirtyWaters.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dirtywaters",
		Short: "Tor-routed WordPress login security testing tool",
		Long: `DirtyWaters tests WordPress login endpoints for weak credentials during
authorized security assessments. All traffic to the target is routed through
a Tor SOCKS5 proxy, and the Tor identity is rotated on a fixed schedule via
the control port.

This tool is for authorized testing only. Running it against systems you do
not have written permission to test is illegal.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and maps errors to process exit codes.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.err != nil {
				fmt.Fprintln(os.Stderr, exitErr.err)
			}
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
