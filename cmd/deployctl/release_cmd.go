package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kooba/ditc-deployer/pkg/event"
)

type releaseOpts struct {
	*rootOpts
	await bool
}

func newRelease(parent *rootOpts) *releaseOpts {
	return &releaseOpts{rootOpts: parent}
}

func (opts *releaseOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release TAG",
		Short: "deploy a tag to every environment that tracks it, as if it had just been pushed",
		Example: `  deployctl release v1.2.3
  deployctl release v1.2.3 --await`,
		Args: exactlyOne("tag"),
		RunE: opts.RunE,
	}
	cmd.Flags().BoolVarP(&opts.await, "await", "w", false, "wait for all the deployments to finish")
	return cmd
}

func (opts *releaseOpts) RunE(cmd *cobra.Command, args []string) error {
	payload, err := json.Marshal(event.WebhookPayload{RefType: event.RefTypeTag, Ref: args[0]})
	if err != nil {
		return err
	}
	return submit(context.Background(), cmd, opts.rootOpts, event.Event{Type: event.Create, Payload: string(payload)}, opts.await)
}
