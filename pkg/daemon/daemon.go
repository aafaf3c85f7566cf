package daemon

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"

	"github.com/kooba/ditc-deployer/pkg/api"
	"github.com/kooba/ditc-deployer/pkg/event"
	"github.com/kooba/ditc-deployer/pkg/job"
)

// Handler carries out an event, e.g., *dispatch.Dispatcher.
type Handler interface {
	Handle(context.Context, event.Event) error
}

// Daemon accepts events and runs them, one at a time, in the order
// they arrived.
type Daemon struct {
	V              string
	Handler        Handler
	Jobs           *job.Queue
	JobStatusCache *job.StatusCache
	Logger         log.Logger
}

// Invariant.
var _ api.Server = &Daemon{}

func (d *Daemon) Version(ctx context.Context) (string, error) {
	return d.V, nil
}

func (d *Daemon) Ping(ctx context.Context) error {
	return nil
}

// SubmitEvent queues the event. The payload is not looked at until
// the event is handled; a bad payload shows up as a failed job.
func (d *Daemon) SubmitEvent(ctx context.Context, ev event.Event) (job.ID, error) {
	if !ev.Type.Valid() {
		return "", event.UnsupportedTypeError(string(ev.Type))
	}
	return d.queueJob(ev), nil
}

// executeJob handles an event and keeps track of its status, so the
// status can be looked up by ID.
func (d *Daemon) executeJob(ctx context.Context, id job.ID, ev event.Event) error {
	d.JobStatusCache.SetStatus(id, job.Status{Event: ev.Type, StatusString: job.StatusRunning})
	if err := d.Handler.Handle(ctx, ev); err != nil {
		d.JobStatusCache.SetStatus(id, job.Status{Event: ev.Type, StatusString: job.StatusFailed, Err: err.Error()})
		return err
	}
	d.JobStatusCache.SetStatus(id, job.Status{Event: ev.Type, StatusString: job.StatusSucceeded})
	return nil
}

func (d *Daemon) queueJob(ev event.Event) job.ID {
	id := job.NewID()
	enqueuedAt := time.Now()
	d.JobStatusCache.SetStatus(id, job.Status{Event: ev.Type, StatusString: job.StatusQueued})
	d.Jobs.Enqueue(&job.Job{
		ID:    id,
		Event: ev,
		Do: func(ctx context.Context, logger log.Logger) error {
			queueDuration.Observe(time.Since(enqueuedAt).Seconds())
			return d.executeJob(ctx, id, ev)
		},
	})
	queueLength.Set(float64(d.Jobs.Len()))
	return id
}

// JobStatus looks up a job's status. A queued job also says how many
// jobs will run before it.
func (d *Daemon) JobStatus(ctx context.Context, jobID job.ID) (job.Status, error) {
	status, ok := d.JobStatusCache.Status(jobID)
	if !ok {
		return status, unknownJobError(jobID)
	}
	if status.StatusString == job.StatusQueued {
		status.Ahead, _ = d.Jobs.Position(jobID)
	}
	return status, nil
}
