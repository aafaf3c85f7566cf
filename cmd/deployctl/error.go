package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// usageError is for a command line that can't be run as given; main
// follows it with the command's usage.
type usageError struct {
	error
}

func newUsageError(format string, args ...interface{}) usageError {
	return usageError{error: fmt.Errorf(format, args...)}
}

// exactlyOne is for commands taking a single argument, described by
// what. Arguments are checked before any connection to deployerd is
// made.
func exactlyOne(what string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != 1 {
			return newUsageError("please supply exactly one %s, got %d arguments", what, len(args))
		}
		return nil
	}
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) != 0 {
		return newUsageError("expected no (non-flag) arguments, got %q", args)
	}
	return nil
}
