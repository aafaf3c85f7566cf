package github

import (
	"io/ioutil"
	"net/http"

	gh "github.com/google/go-github/v28/github"
	"github.com/pkg/errors"

	ditcerr "github.com/kooba/ditc-deployer/pkg/errors"
	"github.com/kooba/ditc-deployer/pkg/event"
)

// Webhook event names, as sent in the X-GitHub-Event header.
const (
	HookCreate = "create"
	HookPing   = "ping"
)

// Hook is a webhook delivery, checked and read.
type Hook struct {
	Delivery string
	Name     string
	Payload  []byte
}

// Event returns the event to handle for the delivery, if there is
// one. Only ref creation leads to an event; whether the ref is a tag
// is decided when the event is handled.
func (h Hook) Event() (event.Event, bool) {
	if h.Name != HookCreate {
		return event.Event{}, false
	}
	return event.Event{Type: event.Create, Payload: string(h.Payload)}, true
}

// ReadHook reads a webhook delivery from the request. When a secret
// is supplied, the payload signature is checked against it.
func ReadHook(r *http.Request, secret []byte) (Hook, error) {
	h := Hook{
		Delivery: gh.DeliveryID(r),
		Name:     gh.WebHookType(r),
	}
	if h.Name == "" {
		return h, missingHookTypeError
	}
	hooksReceived.With("event", h.Name).Add(1)

	var err error
	if len(secret) > 0 {
		h.Payload, err = gh.ValidatePayload(r, secret)
		if err != nil {
			return h, &ditcerr.Error{
				Type: ditcerr.User,
				Err:  errors.Wrap(err, "validating webhook payload"),
				Help: `The webhook payload could not be validated

Check that the secret configured for the webhook in GitHub is the same
as the deployer's --github-webhook-secret, and that the webhook's
content type is application/json.
`,
			}
		}
		return h, nil
	}
	h.Payload, err = ioutil.ReadAll(r.Body)
	if err != nil {
		return h, errors.Wrap(err, "reading webhook payload")
	}
	return h, nil
}

var missingHookTypeError = &ditcerr.Error{
	Type: ditcerr.User,
	Err:  errors.New("missing X-GitHub-Event header"),
	Help: `The request is missing the X-GitHub-Event header

This endpoint only accepts deliveries from GitHub webhooks.
`,
}
