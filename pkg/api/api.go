package api

import (
	"context"

	"github.com/kooba/ditc-deployer/pkg/event"
	"github.com/kooba/ditc-deployer/pkg/job"
)

// Server is what the deployer daemon offers its API clients.
type Server interface {
	Ping(context.Context) error
	Version(context.Context) (string, error)
	// SubmitEvent queues an event to be handled, and returns straight
	// away with an ID for looking up how it went.
	SubmitEvent(context.Context, event.Event) (job.ID, error)
	JobStatus(context.Context, job.ID) (job.Status, error)
}
