package job

import (
	"context"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/google/uuid"

	"github.com/kooba/ditc-deployer/pkg/event"
)

type ID string

func NewID() ID {
	return ID(uuid.New().String())
}

type JobFunc func(context.Context, log.Logger) error

// Job is an accepted event waiting to be handled.
type Job struct {
	ID    ID
	Event event.Event
	Do    JobFunc
}

type StatusString string

const (
	StatusQueued    StatusString = "queued"
	StatusRunning   StatusString = "running"
	StatusFailed    StatusString = "failed"
	StatusSucceeded StatusString = "succeeded"
)

// Status holds the possible states of a job; either,
//  1. queued, with the number of jobs ahead of it, or running
//  2. succeeded
//  3. failed, with the error that was reported
type Status struct {
	Event        event.Type   `json:"event"`
	Err          string       `json:"err,omitempty"`
	StatusString StatusString `json:"status"`
	Ahead        int          `json:"ahead,omitempty"`
}

func (s Status) Error() string {
	return s.Err
}

// Queue is an unbounded queue of jobs; enqueuing a job will always
// proceed, while dequeuing is done by receiving from a channel.
type Queue struct {
	ready   chan *Job
	notify  chan struct{}
	mu      sync.Mutex
	waiting []*Job
}

func NewQueue(stop <-chan struct{}, wg *sync.WaitGroup) *Queue {
	q := &Queue{
		ready:  make(chan *Job),
		notify: make(chan struct{}, 1),
	}
	wg.Add(1)
	go q.loop(stop, wg)
	return q
}

// Len counts the jobs waiting. Having just received from Ready, the
// job received may still be counted for a moment.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// Enqueue puts a job at the back of the queue. It does not block.
func (q *Queue) Enqueue(j *Job) {
	q.mu.Lock()
	q.waiting = append(q.waiting, j)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Position gives the number of jobs ahead of the job with the ID
// given, if it is waiting.
func (q *Queue) Position(id ID) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, j := range q.waiting {
		if j.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Ready returns a channel from which jobs are dequeued, in the order
// they were enqueued.
func (q *Queue) Ready() <-chan *Job {
	return q.ready
}

func (q *Queue) loop(stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		next := q.nextOrNil()
		var out chan *Job
		if next != nil {
			out = q.ready
		}

		select {
		case <-stop:
			return
		case <-q.notify:
		case out <- next: // cannot proceed if out is nil
			q.mu.Lock()
			q.waiting = q.waiting[1:]
			q.mu.Unlock()
		}
	}
}

func (q *Queue) nextOrNil() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.waiting) > 0 {
		return q.waiting[0]
	}
	return nil
}
