package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ditcerr "github.com/kooba/ditc-deployer/pkg/errors"
)

func TestMakeURL(t *testing.T) {
	router := NewAPIRouter()
	for _, c := range []struct {
		route  string
		params []string
		want   string
	}{
		{Ping, nil, "http://deployer:3030/api/v1/ping"},
		{SubmitEvent, []string{"type", "exec"}, "http://deployer:3030/api/v1/events/exec"},
		{JobStatus, []string{"id", "8f1c"}, "http://deployer:3030/api/v1/jobs?id=8f1c"},
	} {
		u, err := MakeURL("http://deployer:3030/api", router, c.route, c.params...)
		require.NoError(t, err, c.route)
		assert.Equal(t, c.want, u.String())
	}

	_, err := MakeURL("http://deployer:3030", router, "NoSuchRoute")
	assert.Error(t, err)
}

func TestErrorResponse(t *testing.T) {
	for _, c := range []struct {
		err  error
		code int
	}{
		{&ditcerr.Error{Type: ditcerr.Missing, Err: errors.New("unknown job")}, http.StatusNotFound},
		{&ditcerr.Error{Type: ditcerr.User, Err: errors.New("bad event")}, http.StatusUnprocessableEntity},
		{errors.New("cluster unreachable"), http.StatusInternalServerError},
	} {
		r := httptest.NewRequest("GET", "/v1/jobs?id=x", nil)
		r.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		ErrorResponse(w, r, c.err)
		assert.Equal(t, c.code, w.Code)

		var got ditcerr.Error
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, c.err.Error(), got.Err.Error())
	}
}

func TestWriteErrorPlainText(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/nope", nil)
	r.Header.Set("Accept", "text/plain")
	w := httptest.NewRecorder()
	WriteError(w, r, http.StatusNotFound, MakeAPINotFound("/v1/nope"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "    /v1/nope")
}

func TestWriteErrorNegotiation(t *testing.T) {
	notFound := MakeAPINotFound("/v1/nope")
	for _, c := range []struct {
		accept      string
		err         error
		contentType string
		body        string
	}{
		{"", notFound, "text/plain; charset=utf-8", notFound.Help},
		{"*/*", notFound, "text/plain; charset=utf-8", notFound.Help},
		{"text/html", notFound, "text/plain; charset=utf-8", notFound.Help},
		{"", errors.New("cluster unreachable"), "text/plain; charset=utf-8", "cluster unreachable"},
	} {
		r := httptest.NewRequest("GET", "/v1/nope", nil)
		if c.accept != "" {
			r.Header.Set("Accept", c.accept)
		}
		w := httptest.NewRecorder()
		WriteError(w, r, http.StatusNotFound, c.err)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, c.contentType, w.Header().Get("Content-Type"), "Accept: %q", c.accept)
		assert.Equal(t, c.body, w.Body.String(), "Accept: %q", c.accept)
	}
}

func TestWriteErrorJSONCoversPlainErrors(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/events/exec", nil)
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	WriteError(w, r, http.StatusBadRequest, errors.New("reading event payload: unexpected EOF"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var got ditcerr.Error
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, ditcerr.Server, got.Type)
	assert.Equal(t, "reading event payload: unexpected EOF", got.Err.Error())
}

func TestJSONResponseNegotiation(t *testing.T) {
	status := map[string]string{"status": "succeeded"}

	for _, accept := range []string{"", "application/json", "*/*", "application/*;q=0.2, text/html"} {
		r := httptest.NewRequest("GET", "/v1/jobs?id=x", nil)
		if accept != "" {
			r.Header.Set("Accept", accept)
		}
		w := httptest.NewRecorder()
		JSONResponse(w, r, status)
		assert.Equal(t, http.StatusOK, w.Code, "Accept: %q", accept)
		assert.JSONEq(t, `{"status":"succeeded"}`, w.Body.String())
	}

	r := httptest.NewRequest("GET", "/v1/jobs?id=x", nil)
	r.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	JSONResponse(w, r, status)
	assert.Equal(t, http.StatusNotAcceptable, w.Code)
	assert.Contains(t, w.Body.String(), "    text/html")
}

func TestAcceptedResponseIsAlwaysJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/events/exec", nil)
	r.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	AcceptedResponse(w, r, "8f1c")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, `"8f1c"`, w.Body.String())
}
