package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kooba/ditc-deployer/pkg/api"
	"github.com/kooba/ditc-deployer/pkg/event"
	"github.com/kooba/ditc-deployer/pkg/job"
)

var ErrTimeout = errors.New("timeout")

// submit sends the event, and if asked to, waits for it to have been
// handled.
func submit(ctx context.Context, cmd *cobra.Command, opts *rootOpts, ev event.Event, await bool) error {
	id, err := opts.API.SubmitEvent(ctx, ev)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStderr(), "Job ID %s\n", string(id))
	if !await {
		return nil
	}
	st, err := awaitJob(ctx, opts.API, id, opts.Timeout)
	printStatus(cmd, id, st)
	return err
}

// awaitJob polls for a job to have finished, with exponential
// backoff. A failed job is returned as an error.
func awaitJob(ctx context.Context, client api.Server, jobID job.ID, timeout time.Duration) (job.Status, error) {
	var st job.Status
	err := backoff(100*time.Millisecond, 2, 50, timeout, func() (bool, error) {
		var err error
		st, err = client.JobStatus(ctx, jobID)
		if err != nil {
			return false, err
		}
		switch st.StatusString {
		case job.StatusFailed:
			return false, st
		case job.StatusSucceeded:
			return true, nil
		}
		return false, nil
	})
	return st, err
}

// backoff polls for f() to have been completed, with exponential backoff.
func backoff(initialDelay, factor, maxFactor, timeout time.Duration, f func() (bool, error)) error {
	maxDelay := initialDelay * maxFactor
	finish := time.Now().Add(timeout)
	for delay := initialDelay; time.Now().Before(finish); delay = min(delay*factor, maxDelay) {
		ok, err := f()
		if ok || err != nil {
			return err
		}
		// If we don't have time to try again, stop
		if time.Now().Add(delay).After(finish) {
			break
		}
		time.Sleep(delay)
	}
	return ErrTimeout
}

func min(t1, t2 time.Duration) time.Duration {
	if t1 < t2 {
		return t1
	}
	return t2
}
