package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kooba/ditc-deployer/pkg/event"
)

type runOpts struct {
	*rootOpts
	await bool
}

func newRun(parent *rootOpts) *runOpts {
	return &runOpts{rootOpts: parent}
}

func (opts *runOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run ENVIRONMENT",
		Short:   "deploy deployerd's own revision to an environment",
		Example: "  deployctl run staging --await",
		Args:    exactlyOne("environment name"),
		RunE:    opts.RunE,
	}
	cmd.Flags().BoolVarP(&opts.await, "await", "w", false, "wait for the deployment to finish")
	return cmd
}

func (opts *runOpts) RunE(cmd *cobra.Command, args []string) error {
	payload, err := json.Marshal(event.ExecPayload{Name: args[0]})
	if err != nil {
		return err
	}
	return submit(context.Background(), cmd, opts.rootOpts, event.Event{Type: event.Exec, Payload: string(payload)}, opts.await)
}
