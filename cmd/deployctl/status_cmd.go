package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kooba/ditc-deployer/pkg/job"
)

type statusOpts struct {
	*rootOpts
}

func newStatus(parent *rootOpts) *statusOpts {
	return &statusOpts{rootOpts: parent}
}

func (opts *statusOpts) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Short: "show the status of a submitted event",
		Args:  exactlyOne("job ID"),
		RunE:  opts.RunE,
	}
}

func (opts *statusOpts) RunE(cmd *cobra.Command, args []string) error {
	st, err := opts.API.JobStatus(context.Background(), job.ID(args[0]))
	if err != nil {
		return err
	}
	printStatus(cmd, job.ID(args[0]), st)
	return nil
}

func printStatus(cmd *cobra.Command, id job.ID, st job.Status) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:\t%s\n", id)
	fmt.Fprintf(out, "Event:\t%s\n", st.Event)
	fmt.Fprintf(out, "Status:\t%s\n", st.StatusString)
	if st.StatusString == job.StatusQueued {
		fmt.Fprintf(out, "Ahead:\t%d\n", st.Ahead)
	}
	if st.Err != "" {
		fmt.Fprintf(out, "Error:\t%s\n", st.Err)
	}
}
