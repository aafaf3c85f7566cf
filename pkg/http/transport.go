package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	ditcerr "github.com/kooba/ditc-deployer/pkg/errors"
)

func NewAPIRouter() *mux.Router {
	r := mux.NewRouter()

	r.NewRoute().Name(Ping).Methods("GET").Path("/v1/ping")
	r.NewRoute().Name(Version).Methods("GET").Path("/v1/version")
	r.NewRoute().Name(SubmitEvent).Methods("POST").Path("/v1/events/{type}")
	r.NewRoute().Name(JobStatus).Methods("GET").Path("/v1/jobs").Queries("id", "{id}")
	r.NewRoute().Name(GitHubHook).Methods("POST").Path("/v1/hooks/github")

	return r
}

// MakeURL gives the URL for a named route, relative to endpoint.
// urlParams are pairs; those named in the route's path fill in the
// path, and the rest become query parameters.
func MakeURL(endpoint string, router *mux.Router, routeName string, urlParams ...string) (*url.URL, error) {
	if len(urlParams)%2 != 0 {
		panic("urlParams must be even!")
	}

	endpointURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing endpoint %s", endpoint)
	}
	route := router.Get(routeName)
	if route == nil {
		return nil, errors.New("no route with name " + routeName)
	}
	tmpl, err := route.GetPathTemplate()
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving route template %s", routeName)
	}
	routeURL, err := route.URLPath(urlParams...)
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving route path %s", routeName)
	}

	v := url.Values{}
	for i := 0; i < len(urlParams); i += 2 {
		if strings.Contains(tmpl, "{"+urlParams[i]+"}") {
			continue
		}
		v.Add(urlParams[i], urlParams[i+1])
	}

	endpointURL.Path = path.Join(endpointURL.Path, routeURL.Path)
	endpointURL.RawQuery = v.Encode()
	return endpointURL, nil
}

// WriteError writes err with the status code given. Clients asking
// for JSON, like deployctl, get the error encoded; anyone else gets
// text, which is the help message when the error has one.
func WriteError(w http.ResponseWriter, r *http.Request, code int, err error) {
	herr, isHumane := err.(*ditcerr.Error)
	if negotiate(r, contentTypeText, contentTypeJSON) == contentTypeJSON {
		if !isHumane {
			herr = ditcerr.CoverAllError(err)
		}
		body, encodeErr := json.Marshal(herr)
		if encodeErr != nil {
			w.Header().Set(http.CanonicalHeaderKey("Content-Type"), "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintf(w, "Error encoding error response: %s\n\nOriginal error: %s", encodeErr.Error(), err.Error())
			return
		}
		w.Header().Set(http.CanonicalHeaderKey("Content-Type"), "application/json; charset=utf-8")
		w.WriteHeader(code)
		w.Write(body)
		return
	}

	w.Header().Set(http.CanonicalHeaderKey("Content-Type"), "text/plain; charset=utf-8")
	w.WriteHeader(code)
	if isHumane && herr.Help != "" {
		fmt.Fprint(w, herr.Help)
		return
	}
	fmt.Fprint(w, err.Error())
}

// JSONResponse answers a query. It is Not Acceptable to ask for
// anything but JSON.
func JSONResponse(w http.ResponseWriter, r *http.Request, result interface{}) {
	if negotiate(r, contentTypeJSON) == "" {
		WriteError(w, r, http.StatusNotAcceptable, MakeNotAcceptable(r.Header.Get("Accept")))
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// AcceptedResponse is for requests that have been queued rather than
// carried out. The request has been queued by the time this is
// written, so it is JSON regardless of Accept.
func AcceptedResponse(w http.ResponseWriter, r *http.Request, result interface{}) {
	writeJSON(w, r, http.StatusAccepted, result)
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, result interface{}) {
	body, err := json.Marshal(result)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(body)
}

// ErrorResponse writes an error with the status code its type calls
// for. Errors that aren't already *ditcerr.Error are server errors.
func ErrorResponse(w http.ResponseWriter, r *http.Request, apiError error) {
	var outErr *ditcerr.Error
	var code int
	var ok bool

	err := errors.Cause(apiError)
	if outErr, ok = err.(*ditcerr.Error); !ok {
		outErr = ditcerr.CoverAllError(apiError)
	}
	switch outErr.Type {
	case ditcerr.Missing:
		code = http.StatusNotFound
	case ditcerr.User:
		code = http.StatusUnprocessableEntity
	case ditcerr.Server:
		code = http.StatusInternalServerError
	default:
		code = http.StatusInternalServerError
	}
	WriteError(w, r, code, outErr)
}
