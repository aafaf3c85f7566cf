package http

import (
	"errors"

	ditcerr "github.com/kooba/ditc-deployer/pkg/errors"
)

var ErrorMissingPayload = &ditcerr.Error{
	Type: ditcerr.User,
	Help: `The event has no payload

An event is submitted by POSTing its JSON payload as the request body,
e.g., for a manual deployment,

    curl -XPOST -d '{"name":"staging"}' http://deployer:3030/v1/events/exec
`,
	Err: errors.New("event payload missing"),
}

func MakeAPINotFound(path string) *ditcerr.Error {
	return &ditcerr.Error{
		Type: ditcerr.Missing,
		Help: `The API endpoint requested is not supported by this server.

This indicates that your client (probably deployctl) is either out of
date, or faulty. Make sure it is from the same release as the deployer.

The path requested was:

    ` + path + `
`,
		Err: errors.New("API endpoint not found"),
	}
}

func MakeNotAcceptable(accept string) *ditcerr.Error {
	return &ditcerr.Error{
		Type: ditcerr.User,
		Help: `This endpoint only responds with application/json.

The request's Accept header was:

    ` + accept + `
`,
		Err: errors.New("no acceptable content type"),
	}
}
