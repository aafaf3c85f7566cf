package errors

import (
	"encoding/json"
	"errors"
)

// Error is how failures are represented to API clients and in the
// event log. They are divided into a small number of categories,
// according to whose fault the error is:
//  - a problem with the daemon or its collaborators (the cluster, GitHub)
//  - something that does not exist, e.g., an unknown job or no environments
//  - a request that cannot succeed until the user changes it
type Error struct {
	Type Type
	// a message that can be printed out for the user
	Help string `json:"help"`
	// the underlying error that can be e.g., logged for developers to look at
	Err error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

type Type string

const (
	// The request looked fine, but something went wrong handling it
	Server Type = "server"
	// The thing mentioned, whatever it is, doesn't exist
	Missing Type = "missing"
	// The request was malformed, or asked for something that can't
	// happen with the present configuration
	User Type = "user"
)

func IsMissing(err error) bool {
	if err, ok := err.(*Error); ok && err.Type == Missing {
		return true
	}
	return false
}

func IsUser(err error) bool {
	if err, ok := err.(*Error); ok && err.Type == User {
		return true
	}
	return false
}

type jsonError struct {
	Type string `json:"type"`
	Help string `json:"help"`
	Err  string `json:"error,omitempty"`
}

func (e *Error) MarshalJSON() ([]byte, error) {
	var errMsg string
	if e.Err != nil {
		errMsg = e.Err.Error()
	}
	return json.Marshal(&jsonError{
		Type: string(e.Type),
		Help: e.Help,
		Err:  errMsg,
	})
}

func (e *Error) UnmarshalJSON(data []byte) error {
	var j jsonError
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	e.Type = Type(j.Type)
	e.Help = j.Help
	if j.Err != "" {
		e.Err = errors.New(j.Err)
	}
	return nil
}

// CoverAllError wraps an error that has no specific help message of
// its own.
func CoverAllError(err error) *Error {
	return &Error{
		Type: Server,
		Err:  err,
		Help: `Error: ` + err.Error() + `

There is no specific help message for the error above. The daemon log
will have the full detail, logged next to the word ERROR.
`,
	}
}
