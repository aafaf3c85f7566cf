// config is the package containing configuration for deployerd. It
// is built once at startup and handed to every component that needs
// it; nothing reads the process environment after that.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-containerregistry/pkg/name"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/helm/pkg/strvals"
)

const (
	ConfigPath = "/etc/deployerd"
	ConfigName = "deployer-config"
	ConfigType = "yaml"

	// EnvCommitID and EnvRepoAuthToken are the variables the event
	// runner has always supplied the built revision and the GitHub
	// token in.
	EnvCommitID      = "BRIGADE_COMMIT_ID"
	EnvRepoAuthToken = "BRIGADE_REPO_AUTH_TOKEN"
)

const (
	DefaultNamespace          = "brigade"
	DefaultLabelSelector      = "type=preview-environment-config"
	DefaultEnvironmentLabel   = "environmentName"
	DefaultEnvironmentDataKey = "environment"
	DefaultProjectName        = "gateway"
	DefaultGitHubAPIURL       = "https://api.github.com/repos/kooba/ditc-gateway"
	DefaultWorkerName         = "ditc-gateway"
	DefaultWorkerImage        = "jakubborys/ditc-brigade-worker:latest"
	DefaultSourceImage        = "alpine/git:latest"
	DefaultSourceDir          = "/src"
	DefaultChartPath          = "charts/gateway"
	DefaultReplicaCount       = 1
)

type Config struct {
	LogFormat string `mapstructure:"logFormat"`
	Listen    string `mapstructure:"listen"`

	K8sKubeconfig string `mapstructure:"k8sKubeconfig"`
	K8sMaster     string `mapstructure:"k8sMaster"`
	K8sVerbosity  int    `mapstructure:"k8sVerbosity"`

	// Where environment descriptors live, and how they are marked.
	Namespace          string `mapstructure:"namespace"`
	LabelSelector      string `mapstructure:"labelSelector"`
	EnvironmentLabel   string `mapstructure:"environmentLabel"`
	EnvironmentDataKey string `mapstructure:"environmentDataKey"`
	ProjectName        string `mapstructure:"projectName"`

	GitHubAPIURL         string `mapstructure:"githubApiUrl"`
	GitHubToken          string `mapstructure:"githubToken"`
	GitHubWebhookSecret  string `mapstructure:"githubWebhookSecret"`
	MemoizeTagResolution bool   `mapstructure:"memoizeTagResolution"`

	// CommitID is the revision deployed by manual (exec) events.
	CommitID string `mapstructure:"commitID"`

	WorkerName           string        `mapstructure:"workerName"`
	WorkerImage          string        `mapstructure:"workerImage"`
	WorkerServiceAccount string        `mapstructure:"workerServiceAccount"`
	SourceRepoURL        string        `mapstructure:"sourceRepoUrl"`
	SourceImage          string        `mapstructure:"sourceImage"`
	SourceDir            string        `mapstructure:"sourceDir"`
	ChartPath            string        `mapstructure:"chartPath"`
	ReplicaCount         int           `mapstructure:"replicaCount"`
	ChartValues          string        `mapstructure:"chartValues"`
	JobPollInterval      time.Duration `mapstructure:"jobPollInterval"`
	JobTimeout           time.Duration `mapstructure:"jobTimeout"`

	JobStatusCacheSize int `mapstructure:"jobStatusCacheSize"`

	// Set to handle a single event and exit, rather than serve.
	EventType    string `mapstructure:"eventType"`
	EventPayload string `mapstructure:"eventPayload"`
}

// Default returns the configuration the deployer ran with before it
// was configurable.
func Default() Config {
	return Config{
		LogFormat:          "fmt",
		Listen:             ":3030",
		Namespace:          DefaultNamespace,
		LabelSelector:      DefaultLabelSelector,
		EnvironmentLabel:   DefaultEnvironmentLabel,
		EnvironmentDataKey: DefaultEnvironmentDataKey,
		ProjectName:        DefaultProjectName,
		GitHubAPIURL:       DefaultGitHubAPIURL,
		WorkerName:         DefaultWorkerName,
		WorkerImage:        DefaultWorkerImage,
		SourceImage:        DefaultSourceImage,
		SourceDir:          DefaultSourceDir,
		ChartPath:          DefaultChartPath,
		ReplicaCount:       DefaultReplicaCount,
		JobPollInterval:    2 * time.Second,
		JobStatusCacheSize: 100,
	}
}

// ReleaseName is the Helm release an environment's deployment
// upgrades.
func (c Config) ReleaseName(environmentName string) string {
	return fmt.Sprintf("%s-%s", environmentName, c.ProjectName)
}

func (c Config) IsValid() error {
	switch {
	case c.Namespace == "":
		return fmt.Errorf("a namespace for environment configmaps and deployment jobs must be supplied")
	case c.LabelSelector == "":
		return fmt.Errorf("a label selector for environment configmaps must be supplied")
	case c.EnvironmentLabel == "" || c.EnvironmentDataKey == "":
		return fmt.Errorf("both the environment label and the environment data key must be supplied")
	case c.ProjectName == "":
		return fmt.Errorf("a project name must be supplied")
	case c.WorkerName == "":
		return fmt.Errorf("a worker name must be supplied")
	case c.ReplicaCount < 0:
		return fmt.Errorf("replica count must not be negative, got %d", c.ReplicaCount)
	case c.JobPollInterval <= 0:
		return fmt.Errorf("job poll interval must be positive, got %s", c.JobPollInterval)
	}
	// Release names are <environment>-<project>, and helm wants those
	// to be DNS labels too.
	if errs := validation.IsDNS1123Label(c.ProjectName); len(errs) > 0 {
		return fmt.Errorf("project name %q: %s", c.ProjectName, strings.Join(errs, "; "))
	}
	if u, err := url.Parse(c.GitHubAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("GitHub API URL %q is not an absolute URL", c.GitHubAPIURL)
	}
	if c.ChartValues != "" {
		if _, err := strvals.Parse(c.ChartValues); err != nil {
			return fmt.Errorf("chart values %q: %s", c.ChartValues, err)
		}
	}
	if _, err := name.ParseReference(c.WorkerImage); err != nil {
		return fmt.Errorf("worker image %q: %s", c.WorkerImage, err)
	}
	if c.SourceRepoURL != "" {
		if _, err := name.ParseReference(c.SourceImage); err != nil {
			return fmt.Errorf("source image %q: %s", c.SourceImage, err)
		}
	}
	return nil
}
