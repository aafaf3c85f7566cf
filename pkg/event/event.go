package event

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	ditcerr "github.com/kooba/ditc-deployer/pkg/errors"
)

type Type string

// These are all the types of events.
const (
	// Exec is a manual request to provision a named environment.
	Exec Type = "exec"
	// Create is a source control webhook announcing a new ref.
	Create Type = "create"
)

// RefTypeTag is the only kind of created ref that leads to a
// deployment.
const RefTypeTag = "tag"

// Event is the envelope the event source hands over; the payload is
// a JSON document whose shape depends on the type.
type Event struct {
	Type    Type   `json:"type"`
	Payload string `json:"payload"`
}

func (t Type) Valid() bool {
	switch t {
	case Exec, Create:
		return true
	}
	return false
}

func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return t, UnsupportedTypeError(s)
	}
	return t, nil
}

type ExecPayload struct {
	Name string `json:"name"`
}

type WebhookPayload struct {
	RefType string `json:"ref_type"`
	Ref     string `json:"ref"`
}

// IsTag says whether the created ref is a tag.
func (p WebhookPayload) IsTag() bool {
	return p.RefType == RefTypeTag
}

// ValidationError is returned when a payload is missing a field it
// cannot do without.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload field %q: %s", e.Field, e.Reason)
}

func ParseExec(payload string) (ExecPayload, error) {
	var p ExecPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return p, errors.Wrap(err, "decoding exec payload")
	}
	if p.Name == "" {
		return p, &ValidationError{Field: "name", Reason: "environment name must be specified"}
	}
	return p, nil
}

// ParseWebhook decodes a create payload. It does not check the ref
// type; skipping non-tag refs is up to the caller.
func ParseWebhook(payload string) (WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return p, errors.Wrap(err, "decoding create payload")
	}
	return p, nil
}

func UnsupportedTypeError(t string) *ditcerr.Error {
	return &ditcerr.Error{
		Type: ditcerr.User,
		Err:  fmt.Errorf("unsupported event type %q", t),
		Help: fmt.Sprintf(`Unsupported event type %q

Only %q (provision a named environment) and %q (a tag was pushed)
events are handled.
`, t, Exec, Create),
	}
}
