package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog"

	"github.com/kooba/ditc-deployer/pkg/config"
	"github.com/kooba/ditc-deployer/pkg/daemon"
	"github.com/kooba/ditc-deployer/pkg/deploy"
	"github.com/kooba/ditc-deployer/pkg/dispatch"
	"github.com/kooba/ditc-deployer/pkg/environment"
	"github.com/kooba/ditc-deployer/pkg/event"
	"github.com/kooba/ditc-deployer/pkg/github"
	daemonhttp "github.com/kooba/ditc-deployer/pkg/http/daemon"
	"github.com/kooba/ditc-deployer/pkg/job"
)

var version = "unversioned"

func main() {
	// Flag domain.
	fs := pflag.NewFlagSet("default", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "DESCRIPTION\n")
		fmt.Fprintf(os.Stderr, "  deployerd deploys tagged releases to the preview environments tracking them.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		fs.PrintDefaults()
	}

	v := viper.New()
	defineConfigFlags(v, fs, func(err error) {
		fmt.Fprintf(os.Stderr, "error defining flags: %s\n", err)
		os.Exit(1)
	})
	configFile := fs.String("config-file", "", fmt.Sprintf("path to a YAML config file; by default %s/%s.%s is read if present", config.ConfigPath, config.ConfigName, config.ConfigType))
	versionFlag := fs.Bool("version", false, "get version number")

	err := fs.Parse(os.Args[1:])
	switch {
	case err == pflag.ErrHelp:
		os.Exit(0)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %s\n\nRun 'deployerd --help' for usage.\n", err)
		os.Exit(2)
	}

	if *versionFlag {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg, err := readConfig(v, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config: %s\n", err)
		os.Exit(1)
	}

	// Logger component.
	var logger log.Logger
	{
		switch cfg.LogFormat {
		case "json":
			logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
		case "fmt":
			logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
		default:
			fmt.Fprintf(os.Stderr, "unsupported log format %q, use fmt or json\n", cfg.LogFormat)
			os.Exit(1)
		}
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}
	logger.Log("version", version)

	if err := cfg.IsValid(); err != nil {
		logger.Log("err", err)
		os.Exit(1)
	}

	// client-go logs through klog; send it to stderr at the verbosity
	// asked for.
	klog.InitFlags(nil)
	flag.Set("logtostderr", "true")
	flag.Set("v", strconv.Itoa(cfg.K8sVerbosity))

	restConfig, err := clientcmd.BuildConfigFromFlags(cfg.K8sMaster, cfg.K8sKubeconfig)
	if err != nil {
		logger.Log("err", fmt.Sprintf("error building kubeconfig: %v", err))
		os.Exit(1)
	}
	kubeClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		logger.Log("err", fmt.Sprintf("error building kubernetes clientset: %v", err))
		os.Exit(1)
	}

	dispatcher := dispatch.New(
		cfg,
		environment.NewStore(kubeClient, cfg),
		github.NewClient(cfg.GitHubAPIURL, cfg.GitHubToken, log.With(logger, "component", "github")),
		deploy.NewKubernetesExecutor(kubeClient, cfg, log.With(logger, "component", "deploy")),
		log.With(logger, "component", "dispatch"),
	)

	if cfg.EventType != "" {
		os.Exit(handleOne(dispatcher, cfg, logger))
	}

	// Shutdown handling.
	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	shutdown := make(chan struct{})
	shutdownWg := &sync.WaitGroup{}

	d := &daemon.Daemon{
		V:              version,
		Handler:        dispatcher,
		Jobs:           job.NewQueue(shutdown, shutdownWg),
		JobStatusCache: &job.StatusCache{Size: cfg.JobStatusCacheSize},
		Logger:         log.With(logger, "component", "daemon"),
	}
	shutdownWg.Add(1)
	go d.Loop(shutdown, shutdownWg, log.With(logger, "component", "loop"))

	handler := daemonhttp.NewHandler(d, daemonhttp.NewRouter(), []byte(cfg.GitHubWebhookSecret), log.With(logger, "component", "api"))
	shutdownWg.Add(1)
	go func() {
		defer shutdownWg.Done()
		daemonhttp.ListenAndServe(cfg.Listen, handler, log.With(logger, "component", "http"), shutdown)
	}()

	logger.Log("exiting", <-errc)
	close(shutdown)
	shutdownWg.Wait()
}

// handleOne handles the event given in the config, and gives the exit
// code for how that went.
func handleOne(h daemon.Handler, cfg config.Config, logger log.Logger) int {
	typ, err := event.ParseType(cfg.EventType)
	if err != nil {
		logger.Log("err", err)
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	// Errors have already been logged by the handler.
	if err := h.Handle(ctx, event.Event{Type: typ, Payload: cfg.EventPayload}); err != nil {
		return 1
	}
	return 0
}
