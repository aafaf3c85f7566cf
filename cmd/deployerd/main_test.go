package main

import (
	"context"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"

	"github.com/kooba/ditc-deployer/pkg/config"
	"github.com/kooba/ditc-deployer/pkg/event"
)

type handler struct {
	got event.Event
	err error
}

func (h *handler) Handle(_ context.Context, ev event.Event) error {
	h.got = ev
	return h.err
}

func TestHandleOne(t *testing.T) {
	cfg := config.Default()
	cfg.EventType = "create"
	cfg.EventPayload = `{"ref_type":"tag","ref":"v1.2.3"}`

	h := &handler{}
	assert.Equal(t, 0, handleOne(h, cfg, log.NewNopLogger()))
	assert.Equal(t, event.Event{Type: event.Create, Payload: cfg.EventPayload}, h.got)

	h = &handler{err: &event.ValidationError{Field: "name", Reason: "environment name must be specified"}}
	assert.Equal(t, 1, handleOne(h, cfg, log.NewNopLogger()))

	cfg.EventType = "push"
	assert.Equal(t, 2, handleOne(&handler{}, cfg, log.NewNopLogger()))
}
