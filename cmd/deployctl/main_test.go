package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ditcerr "github.com/kooba/ditc-deployer/pkg/errors"
	"github.com/kooba/ditc-deployer/pkg/event"
	"github.com/kooba/ditc-deployer/pkg/job"
)

// server hands out the statuses given, in turn, for any job.
type server struct {
	submitted []event.Event
	statuses  []job.Status
	polls     int
}

func (s *server) Ping(context.Context) error { return nil }

func (s *server) Version(context.Context) (string, error) { return "test", nil }

func (s *server) SubmitEvent(_ context.Context, ev event.Event) (job.ID, error) {
	s.submitted = append(s.submitted, ev)
	return "job-1", nil
}

func (s *server) JobStatus(_ context.Context, id job.ID) (job.Status, error) {
	if id != "job-1" || len(s.statuses) == 0 {
		return job.Status{}, &ditcerr.Error{Type: ditcerr.Missing, Err: fmt.Errorf("unknown job %q", id)}
	}
	i := s.polls
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	s.polls++
	return s.statuses[i], nil
}

func execute(s *server, args ...string) (string, error) {
	root := &rootOpts{API: s}
	cmd := root.Command()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRunCommand(t *testing.T) {
	s := &server{}
	out, err := execute(s, "run", "staging")
	require.NoError(t, err)
	assert.Contains(t, out, "Job ID job-1")
	assert.Equal(t, []event.Event{{Type: event.Exec, Payload: `{"name":"staging"}`}}, s.submitted)
}

func TestReleaseCommand(t *testing.T) {
	s := &server{}
	_, err := execute(s, "release", "v1.2.3")
	require.NoError(t, err)
	assert.Equal(t, []event.Event{{Type: event.Create, Payload: `{"ref_type":"tag","ref":"v1.2.3"}`}}, s.submitted)
}

func TestCommandsWantOneArg(t *testing.T) {
	for _, args := range [][]string{
		{"run"},
		{"run", "qa", "staging"},
		{"release"},
		{"status"},
	} {
		s := &server{}
		_, err := execute(s, args...)
		assert.IsType(t, usageError{}, err, "%v", args)
		assert.Empty(t, s.submitted)
	}
}

func TestRunAwait(t *testing.T) {
	s := &server{statuses: []job.Status{
		{Event: event.Exec, StatusString: job.StatusQueued},
		{Event: event.Exec, StatusString: job.StatusRunning},
		{Event: event.Exec, StatusString: job.StatusSucceeded},
	}}
	out, err := execute(s, "run", "staging", "--await")
	require.NoError(t, err)
	assert.Equal(t, 3, s.polls)
	assert.Contains(t, out, "Status:\tsucceeded")
}

func TestReleaseAwaitFailed(t *testing.T) {
	s := &server{statuses: []job.Status{
		{Event: event.Create, StatusString: job.StatusFailed, Err: `resolving tag "v9.9.9": 404 Not Found (Not Found)`},
	}}
	out, err := execute(s, "release", "v9.9.9", "-w")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
	assert.Contains(t, out, "Status:\tfailed")
}

func TestStatusCommand(t *testing.T) {
	s := &server{statuses: []job.Status{{Event: event.Create, StatusString: job.StatusRunning}}}
	out, err := execute(s, "status", "job-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Event:\tcreate")

	_, err = execute(s, "status", "job-2")
	assert.True(t, ditcerr.IsMissing(err))
}

func TestStatusCommandQueued(t *testing.T) {
	s := &server{statuses: []job.Status{{Event: event.Exec, StatusString: job.StatusQueued, Ahead: 2}}}
	out, err := execute(s, "status", "job-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:\tqueued\nAhead:\t2\n")
}

func TestBackoffTimeout(t *testing.T) {
	var calls int
	err := backoff(time.Millisecond, 2, 4, 20*time.Millisecond, func() (bool, error) {
		calls++
		return false, nil
	})
	assert.Equal(t, ErrTimeout, err)
	assert.True(t, calls > 1)
}
