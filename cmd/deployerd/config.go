package main

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kooba/ditc-deployer/pkg/config"
)

const (
	EnvEventType    = "DEPLOYER_EVENT_TYPE"
	EnvEventPayload = "DEPLOYER_EVENT_PAYLOAD"
)

// mappedName is the key a config.Config field has in viper. This
// parallels the logic in github.com/mitchellh/mapstructure, except
// that a field marked ignore, like `mapstructure:"-"`, is an error.
func mappedName(fieldName string) (string, error) {
	configStruct := reflect.TypeOf(config.Config{})
	field, ok := configStruct.FieldByName(fieldName)
	if !ok {
		return "", fmt.Errorf("attempt to bind to a field not present in config.Config, %q", fieldName)
	}
	name := field.Name
	if namePart := strings.Split(field.Tag.Get("mapstructure"), ",")[0]; namePart != "" {
		if namePart == "-" {
			return "", fmt.Errorf(`attempt to bind to a config field tagged as ignored, %q`, field.Name)
		}
		name = namePart
	}
	return name, nil
}

// defineConfigFlags defines the flags that can also be set in a
// config file or the environment. Flags given on the command line
// win over the environment, which wins over the config file.
func defineConfigFlags(v *viper.Viper, fs *pflag.FlagSet, bail func(error)) {
	def := config.Default()

	bindOrBail := func(fieldName, flagName string) {
		name, err := mappedName(fieldName)
		if err == nil {
			err = v.BindPFlag(name, fs.Lookup(flagName))
		}
		if err != nil {
			bail(err)
		}
	}

	defineString := func(fieldName, flagName, def, desc string) {
		fs.String(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineStringP := func(fieldName, flagName, short, def, desc string) {
		fs.StringP(flagName, short, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineBool := func(fieldName, flagName string, def bool, desc string) {
		fs.Bool(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineDuration := func(fieldName, flagName string, def time.Duration, desc string) {
		fs.Duration(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineInt := func(fieldName, flagName string, def int, desc string) {
		fs.Int(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineString("LogFormat", "log-format", def.LogFormat, "change the log format (fmt or json)")
	defineStringP("Listen", "listen", "l", def.Listen, "listen address where /metrics, /healthz and the API will be served")

	defineString("K8sKubeconfig", "kubeconfig", "", "path to a kubeconfig; only required if out-of-cluster")
	defineString("K8sMaster", "master", "", "address of the Kubernetes API server; overrides any value in kubeconfig. Only required if out-of-cluster")
	defineInt("K8sVerbosity", "k8s-verbosity", 0, "klog verbosity level")

	// environment descriptors
	defineString("Namespace", "namespace", def.Namespace, "namespace holding environment configmaps, and in which deployment jobs run")
	defineString("LabelSelector", "label-selector", def.LabelSelector, "label selector for environment configmaps")
	defineString("EnvironmentLabel", "environment-label", def.EnvironmentLabel, "label on an environment configmap giving the environment (and namespace) name")
	defineString("EnvironmentDataKey", "environment-data-key", def.EnvironmentDataKey, "key of the environment document in an environment configmap")
	defineString("ProjectName", "project", def.ProjectName, "project to look for in environment documents; also the suffix of Helm release names")

	// GitHub
	defineString("GitHubAPIURL", "github-api-url", def.GitHubAPIURL, "API URL of the repository whose tags are deployed")
	defineString("GitHubToken", "github-token", "", fmt.Sprintf("token for the GitHub API; you can also set the environment variable %s", config.EnvRepoAuthToken))
	defineString("GitHubWebhookSecret", "github-webhook-secret", "", "if set, GitHub webhook deliveries must be signed with this secret")
	defineBool("MemoizeTagResolution", "memoize-tag-resolution", false, "resolve a tag once per event, rather than once per environment deployed to")

	defineString("CommitID", "commit-id", "", fmt.Sprintf("revision deployed by exec events; you can also set the environment variable %s", config.EnvCommitID))

	// deployment jobs
	defineString("WorkerName", "worker-name", def.WorkerName, "prefix of deployment job names")
	defineString("WorkerImage", "worker-image", def.WorkerImage, "image with helm and the chart, used for deployment jobs")
	defineString("WorkerServiceAccount", "worker-service-account", "", "service account deployment jobs run as")
	defineString("SourceRepoURL", "source-repo-url", "", "if set, deployment jobs clone this repository at the revision being deployed, rather than using the chart in the worker image")
	defineString("SourceImage", "source-image", def.SourceImage, "image with git, used to clone --source-repo-url")
	defineString("SourceDir", "source-dir", def.SourceDir, "directory deployment jobs run helm in")
	defineString("ChartPath", "chart-path", def.ChartPath, "path of the chart, relative to --source-dir")
	defineInt("ReplicaCount", "replica-count", def.ReplicaCount, "replicaCount value set on deployment")
	defineString("ChartValues", "chart-values", "", "further chart values for every deployment, in helm --set syntax (e.g., ingress.enabled=true,resources.limits.cpu=500m)")
	defineDuration("JobPollInterval", "job-poll-interval", def.JobPollInterval, "period at which to check whether a deployment job has finished")
	defineDuration("JobTimeout", "job-timeout", 0, "if positive, give up waiting for a deployment job after this long")

	defineInt("JobStatusCacheSize", "job-status-cache-size", def.JobStatusCacheSize, "number of recent jobs whose status is kept")

	defineString("EventType", "event-type", "", fmt.Sprintf("handle a single event of this type and exit, rather than serving; you can also set the environment variable %s", EnvEventType))
	defineString("EventPayload", "event-payload", "", fmt.Sprintf("payload of the event given by --event-type; you can also set the environment variable %s", EnvEventPayload))
}

// bindEnv binds the environment variables the event runner sets.
func bindEnv(v *viper.Viper) error {
	for fieldName, env := range map[string]string{
		"CommitID":     config.EnvCommitID,
		"GitHubToken":  config.EnvRepoAuthToken,
		"EventType":    EnvEventType,
		"EventPayload": EnvEventPayload,
	} {
		name, err := mappedName(fieldName)
		if err != nil {
			return err
		}
		if err := v.BindEnv(name, env); err != nil {
			return err
		}
	}
	return nil
}

// readConfig reads the optional config file, then makes a
// config.Config of everything.
func readConfig(v *viper.Viper, configFile string) (config.Config, error) {
	var cfg config.Config
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(config.ConfigName)
		v.SetConfigType(config.ConfigType)
		v.AddConfigPath(config.ConfigPath)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || configFile != "" {
			return cfg, err
		}
	}
	if err := bindEnv(v); err != nil {
		return cfg, err
	}
	err := v.Unmarshal(&cfg)
	return cfg, err
}
