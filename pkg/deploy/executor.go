package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	batchv1 "k8s.io/api/batch/v1"
	apiv1 "k8s.io/api/core/v1"
	meta_v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/kooba/ditc-deployer/pkg/config"
	ditcmetrics "github.com/kooba/ditc-deployer/pkg/metrics"
)

const (
	LabelEnvironment    = "ditc-deployer/environment"
	AnnotationRevision  = "ditc-deployer/revision"
	managedBy           = "ditc-deployer"
	workerContainerName = "worker"
	sourceContainerName = "source"
	sourceVolumeName    = "src"
)

// Executor carries out a deployment, returning once it has finished.
type Executor interface {
	Deploy(ctx context.Context, r Request) error
}

// DeploymentError means the deployment job could not be run, or ran
// and failed. A failed job may leave the Helm release in a failed
// state that needs looking at by hand.
type DeploymentError struct {
	Environment string
	Job         string
	Reason      string
}

func (e *DeploymentError) Error() string {
	if e.Job == "" {
		return fmt.Sprintf("deploying to %q: %s", e.Environment, e.Reason)
	}
	return fmt.Sprintf("deploying to %q: job %s: %s", e.Environment, e.Job, e.Reason)
}

// KubernetesExecutor runs each deployment as a Kubernetes Job in the
// deployer's namespace, using a worker image that has helm and the
// chart sources.
type KubernetesExecutor struct {
	client kubernetes.Interface
	cfg    config.Config
	logger log.Logger
}

var _ Executor = &KubernetesExecutor{}

func NewKubernetesExecutor(client kubernetes.Interface, cfg config.Config, logger log.Logger) *KubernetesExecutor {
	return &KubernetesExecutor{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Deploy creates a job for the request and waits for it to succeed
// or fail. It does not retry, and does not delete the job after.
func (e *KubernetesExecutor) Deploy(ctx context.Context, r Request) (err error) {
	defer func(start time.Time) {
		deployDuration.With(
			ditcmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(start).Seconds())
	}(time.Now())

	job, err := e.makeJob(r)
	if err != nil {
		return &DeploymentError{Environment: r.EnvironmentName, Reason: err.Error()}
	}

	logger := log.With(e.logger, "environment", r.EnvironmentName, "revision", r.GitSHA, "job", job.Name)
	logger.Log("info", "deploying helm charts")
	if _, err := e.client.BatchV1().Jobs(e.cfg.Namespace).Create(job); err != nil {
		return errors.Wrapf(err, "creating job %s", job.Name)
	}

	if err := e.await(ctx, r, job.Name); err != nil {
		logger.Log("info", "deployment failed", "err", err)
		return err
	}
	logger.Log("info", "deployment succeeded")
	return nil
}

func (e *KubernetesExecutor) await(ctx context.Context, r Request, name string) error {
	if e.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.JobTimeout)
		defer cancel()
	}

	var failure string
	err := wait.PollImmediateUntil(e.cfg.JobPollInterval, func() (bool, error) {
		job, err := e.client.BatchV1().Jobs(e.cfg.Namespace).Get(name, meta_v1.GetOptions{})
		if err != nil {
			return false, errors.Wrapf(err, "getting job %s", name)
		}
		if job.Status.Succeeded > 0 {
			return true, nil
		}
		if reason, failed := jobFailed(job); failed {
			failure = reason
			return true, nil
		}
		return false, nil
	}, ctx.Done())

	switch {
	case err == wait.ErrWaitTimeout:
		return &DeploymentError{Environment: r.EnvironmentName, Job: name, Reason: fmt.Sprintf("stopped waiting for job: %v", ctx.Err())}
	case err != nil:
		return err
	case failure != "":
		return &DeploymentError{Environment: r.EnvironmentName, Job: name, Reason: failure}
	}
	return nil
}

func jobFailed(job *batchv1.Job) (string, bool) {
	for _, c := range job.Status.Conditions {
		if c.Type == batchv1.JobFailed && c.Status == apiv1.ConditionTrue {
			return fmt.Sprintf("%s: %s", c.Reason, c.Message), true
		}
	}
	// with a backoff limit of zero, one failed pod fails the job
	if job.Status.Failed > 0 {
		return fmt.Sprintf("%d pod(s) failed", job.Status.Failed), true
	}
	return "", false
}

func jobName(worker string) string {
	if len(worker) > 54 {
		worker = worker[:54]
	}
	return fmt.Sprintf("%s-%s", worker, uuid.New().String()[:8])
}

func (e *KubernetesExecutor) makeJob(r Request) (*batchv1.Job, error) {
	tasks, err := Tasks(e.cfg, r)
	if err != nil {
		return nil, err
	}

	labels := map[string]string{
		"app.kubernetes.io/name":       e.cfg.WorkerName,
		"app.kubernetes.io/managed-by": managedBy,
		LabelEnvironment:               r.EnvironmentName,
	}
	annotations := map[string]string{
		AnnotationRevision: r.GitSHA,
	}

	// The worker image is pulled every time, so a rebuilt worker is
	// picked up without changing the tag. Nothing is kept between
	// runs.
	worker := apiv1.Container{
		Name:            workerContainerName,
		Image:           e.cfg.WorkerImage,
		ImagePullPolicy: apiv1.PullAlways,
		Command:         []string{"/bin/sh", "-c", Script(tasks)},
	}
	pod := apiv1.PodSpec{
		RestartPolicy:      apiv1.RestartPolicyNever,
		ServiceAccountName: e.cfg.WorkerServiceAccount,
	}

	if e.cfg.SourceRepoURL != "" {
		mount := apiv1.VolumeMount{Name: sourceVolumeName, MountPath: e.cfg.SourceDir}
		pod.Volumes = []apiv1.Volume{{
			Name:         sourceVolumeName,
			VolumeSource: apiv1.VolumeSource{EmptyDir: &apiv1.EmptyDirVolumeSource{}},
		}}
		pod.InitContainers = []apiv1.Container{{
			Name:            sourceContainerName,
			Image:           e.cfg.SourceImage,
			ImagePullPolicy: apiv1.PullAlways,
			Command:         []string{"/bin/sh", "-c", checkoutScript(e.cfg.SourceRepoURL, e.cfg.SourceDir, r.GitSHA)},
			VolumeMounts:    []apiv1.VolumeMount{mount},
		}}
		worker.VolumeMounts = []apiv1.VolumeMount{mount}
	}
	pod.Containers = []apiv1.Container{worker}

	backoffLimit := int32(0)
	return &batchv1.Job{
		ObjectMeta: meta_v1.ObjectMeta{
			Name:        jobName(e.cfg.WorkerName),
			Namespace:   e.cfg.Namespace,
			Labels:      labels,
			Annotations: annotations,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: &backoffLimit,
			Template: apiv1.PodTemplateSpec{
				ObjectMeta: meta_v1.ObjectMeta{
					Labels:      labels,
					Annotations: annotations,
				},
				Spec: pod,
			},
		},
	}, nil
}
