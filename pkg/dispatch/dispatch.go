package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	pkgerrors "github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/kooba/ditc-deployer/pkg/config"
	"github.com/kooba/ditc-deployer/pkg/deploy"
	"github.com/kooba/ditc-deployer/pkg/environment"
	ditcerr "github.com/kooba/ditc-deployer/pkg/errors"
	"github.com/kooba/ditc-deployer/pkg/event"
	"github.com/kooba/ditc-deployer/pkg/github"
	ditcmetrics "github.com/kooba/ditc-deployer/pkg/metrics"
)

var ErrNoCommitID = &ditcerr.Error{
	Type: ditcerr.User,
	Err:  errors.New("no commit id configured"),
	Help: `No commit id configured

Provisioning an environment by name deploys the revision the deployer
was built from. Set it with --commit-id, or in the environment:

    BRIGADE_COMMIT_ID=<sha>
`,
}

// Dispatcher decides what each event means, and carries it out.
type Dispatcher struct {
	cfg      config.Config
	store    environment.Lister
	resolver github.TagResolver
	executor deploy.Executor
	logger   log.Logger
}

func New(cfg config.Config, store environment.Lister, resolver github.TagResolver, executor deploy.Executor, logger log.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		executor: executor,
		logger:   logger,
	}
}

// Handle processes a single event to completion. Any error is logged
// via Report before it is returned, and only then.
func (d *Dispatcher) Handle(ctx context.Context, ev event.Event) (err error) {
	defer func(start time.Time) {
		eventDuration.With(
			ditcmetrics.LabelEventType, string(ev.Type),
			ditcmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(start).Seconds())
	}(time.Now())

	logger := log.With(d.logger, "event", ev.Type)
	if err := d.handle(ctx, logger, ev); err != nil {
		return Report(logger, err)
	}
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, logger log.Logger, ev event.Event) error {
	switch ev.Type {
	case event.Exec:
		p, err := event.ParseExec(ev.Payload)
		if err != nil {
			return err
		}
		return d.Provision(ctx, p.Name)
	case event.Create:
		p, err := event.ParseWebhook(ev.Payload)
		if err != nil {
			return err
		}
		if !p.IsTag() {
			logger.Log("info", "skipping, not a tag commit", "ref_type", p.RefType, "ref", p.Ref)
			return nil
		}
		return d.DeployTag(ctx, p)
	default:
		return event.UnsupportedTypeError(string(ev.Type))
	}
}

// Provision deploys the deployer's own commit to the named
// environment.
func (d *Dispatcher) Provision(ctx context.Context, environmentName string) error {
	if d.cfg.CommitID == "" {
		return ErrNoCommitID
	}
	d.logger.Log("info", "provisioning environment", "environment", environmentName, "revision", d.cfg.CommitID)
	return d.executor.Deploy(ctx, deploy.Request{
		EnvironmentName: environmentName,
		GitSHA:          d.cfg.CommitID,
	})
}

// DeployTag deploys the tag in the payload to every environment that
// tracks it, one after another. It gives up at the first failure;
// environments already deployed to stay deployed.
func (d *Dispatcher) DeployTag(ctx context.Context, p event.WebhookPayload) error {
	tag := p.Ref
	logger := log.With(d.logger, "tag", tag)

	descriptors, err := d.store.List(ctx)
	if err != nil {
		return err
	}
	matches, err := environment.Matches(descriptors, d.cfg.ProjectName, tag)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		logger.Log("info", "no environments track tag", "environments", len(descriptors))
		return nil
	}
	logger.Log("info", "found environments tracking tag", "matched", len(matches), "environments", len(descriptors))

	resolver := d.resolver
	if d.cfg.MemoizeTagResolution {
		resolver = github.Memoize(resolver)
	}
	for _, m := range matches {
		sha, err := resolver.ResolveTag(ctx, tag)
		if err != nil {
			return err
		}
		logger.Log("info", "deploying tag", "environment", m.EnvironmentName, "configmap", m.ConfigMap, "revision", sha)
		if err := d.executor.Deploy(ctx, deploy.Request{
			EnvironmentName: m.EnvironmentName,
			GitSHA:          sha,
		}); err != nil {
			return err
		}
	}
	return nil
}

type responseBodyError interface {
	ResponseBody() string
}

// Report logs an error with the most useful detail it has, and hands
// the error back so it can be returned.
func Report(logger log.Logger, err error) error {
	logger.Log("ERROR", Detail(err), "err", err)
	return err
}

// Detail is what is known about an error beyond its message: the
// status message from the Kubernetes API, or the body of a failed
// response.
func Detail(err error) string {
	switch cause := pkgerrors.Cause(err).(type) {
	case apierrors.APIStatus:
		if msg := cause.Status().Message; msg != "" {
			return msg
		}
	case responseBodyError:
		if body := cause.ResponseBody(); body != "" {
			return body
		}
	}
	return err.Error()
}
