package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kooba/ditc-deployer/pkg/api"
	"github.com/kooba/ditc-deployer/pkg/config"
	transport "github.com/kooba/ditc-deployer/pkg/http"
	"github.com/kooba/ditc-deployer/pkg/http/client"
)

const (
	EnvVariableURL = "DEPLOYER_URL"
)

type rootOpts struct {
	URL       string
	Namespace string
	Labels    string
	Timeout   time.Duration
	API       api.Server
}

func newRoot() *rootOpts {
	return &rootOpts{}
}

var rootLongHelp = strings.TrimSpace(`
deployctl talks to deployerd, to deploy to preview environments.

Workflow:
  deployctl run staging --await    # Deploy deployerd's own revision to staging
  deployctl release v1.2.3         # Deploy v1.2.3 everywhere that tracks it
  deployctl status <job ID>        # How did that go?
`)

func (opts *rootOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "deployctl",
		Long:              rootLongHelp,
		SilenceUsage:      true,
		PersistentPreRunE: opts.PersistentPreRunE,
	}
	cmd.PersistentFlags().StringVarP(&opts.URL, "url", "u", "",
		fmt.Sprintf("base URL of the deployerd API server; you can also set the environment variable %s. If neither is set, a port is forwarded to deployerd in the cluster", EnvVariableURL))
	cmd.PersistentFlags().StringVar(&opts.Namespace, "k8s-fwd-ns", config.DefaultNamespace,
		"namespace in which deployerd is running, for port forwarding")
	cmd.PersistentFlags().StringVar(&opts.Labels, "k8s-fwd-labels", "app=deployerd",
		"labels used to find the deployerd pod, for port forwarding")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Minute,
		"how long to wait for a job, when waiting")

	cmd.AddCommand(
		newRun(opts).Command(),
		newRelease(opts).Command(),
		newStatus(opts).Command(),
		newVersion(opts).Command(),
	)

	return cmd
}

func (opts *rootOpts) PersistentPreRunE(cmd *cobra.Command, _ []string) error {
	// The version command only needs a server when asked for its
	// version.
	askServer, _ := cmd.Flags().GetBool("server")
	if opts.API != nil || (cmd.Name() == "version" && !askServer) {
		return nil
	}
	url := os.Getenv(EnvVariableURL)
	if cmd.Flags().Changed("url") || url == "" {
		url = opts.URL
	}
	if url == "" {
		var err error
		if url, err = portforwardURL(opts.Namespace, opts.Labels); err != nil {
			return err
		}
	}
	opts.API = client.New(http.DefaultClient, transport.NewAPIRouter(), url)
	return nil
}
