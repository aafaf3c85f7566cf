package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Set with -ldflags at build time.
var version string

type versionOpts struct {
	*rootOpts
	server bool
}

func newVersion(parent *rootOpts) *versionOpts {
	return &versionOpts{rootOpts: parent}
}

func (opts *versionOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "show the version of deployctl, and optionally of deployerd",
		Args:  noArgs,
		RunE:  opts.RunE,
	}
	cmd.Flags().BoolVar(&opts.server, "server", false, "also ask deployerd for its version")
	return cmd
}

func (opts *versionOpts) RunE(cmd *cobra.Command, _ []string) error {
	v := version
	if v == "" {
		v = "unversioned"
	}
	out := cmd.OutOrStdout()
	if !opts.server {
		fmt.Fprintln(out, v)
		return nil
	}
	fmt.Fprintf(out, "deployctl:\t%s\n", v)
	sv, err := opts.API.Version(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "deployerd:\t%s\n", sv)
	return nil
}
