package job

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	shutdown := make(chan struct{})
	wg := &sync.WaitGroup{}
	defer close(shutdown)
	q := NewQueue(shutdown, wg)
	assert.Equal(t, 0, q.Len(), "fresh queue")

	select {
	case <-q.Ready():
		t.Error("Value from q.Ready before any values enqueued")
	default:
	}

	q.Enqueue(&Job{ID: "job 1"})
	q.Enqueue(&Job{ID: "job 2"})
	assert.Equal(t, 2, q.Len(), "after enqueuing two jobs")

	ahead, ok := q.Position("job 2")
	assert.True(t, ok)
	assert.Equal(t, 1, ahead)
	_, ok = q.Position("job 3")
	assert.False(t, ok)

	j := <-q.Ready()
	assert.Equal(t, ID("job 1"), j.ID)
	j = <-q.Ready()
	assert.Equal(t, ID("job 2"), j.ID)
	waitFor(t, func() bool { return q.Len() == 0 }, "dequeuing everything")

	select {
	case j = <-q.Ready():
		t.Errorf("Dequeued from empty queue: %#v", j)
	default:
	}
}

func TestQueueWakesWhenEmpty(t *testing.T) {
	shutdown := make(chan struct{})
	wg := &sync.WaitGroup{}
	defer close(shutdown)
	q := NewQueue(shutdown, wg)

	got := make(chan ID)
	go func() {
		got <- (<-q.Ready()).ID
	}()
	time.Sleep(10 * time.Millisecond)
	q.Enqueue(&Job{ID: "late"})

	select {
	case id := <-got:
		assert.Equal(t, ID("late"), id)
	case <-time.After(5 * time.Second):
		t.Fatal("job enqueued on an empty queue was never ready")
	}
}

func waitFor(t *testing.T, f func() bool, what string) {
	deadline := time.Now().Add(5 * time.Second)
	for !f() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStatusCache(t *testing.T) {
	c := &StatusCache{Size: 2}
	c.SetStatus("a", Status{StatusString: StatusQueued})
	c.SetStatus("b", Status{StatusString: StatusQueued})
	c.SetStatus("a", Status{StatusString: StatusSucceeded})

	s, ok := c.Status("a")
	assert.True(t, ok)
	assert.Equal(t, StatusSucceeded, s.StatusString)

	c.SetStatus("c", Status{StatusString: StatusFailed, Err: "boom"})
	_, ok = c.Status("a")
	assert.False(t, ok, "oldest entry should have been evicted")
	s, ok = c.Status("c")
	assert.True(t, ok)
	assert.Equal(t, "boom", s.Error())
}

func TestStatusCacheDisabled(t *testing.T) {
	c := &StatusCache{}
	c.SetStatus("a", Status{StatusString: StatusQueued})
	_, ok := c.Status("a")
	assert.False(t, ok)
}

func TestNewID(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
