package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	// mux is the HTTP request multiplexer used with the test server.
	mux *http.ServeMux

	// server is a test HTTP server used to provide mock API responses.
	server *httptest.Server

	// requests counts what reached the mux.
	requests int32
)

// setup starts a test server standing in for the repository API at
// /repos/o/r. Tests register handlers on mux.
func setup() string {
	mux = http.NewServeMux()
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		mux.ServeHTTP(w, r)
	}))
	atomic.StoreInt32(&requests, 0)
	return server.URL + "/repos/o/r"
}

func teardown() {
	server.Close()
}

const refBody = `{
  "ref": "refs/tags/v1.2.3",
  "node_id": "MDM6UmVmcmVmcy90YWdzL3YxLjIuMw==",
  "url": "https://api.github.com/repos/o/r/git/refs/tags/v1.2.3",
  "object": {
    "type": "commit",
    "sha": "abc123",
    "url": "https://api.github.com/repos/o/r/git/commits/abc123"
  }
}`

func TestResolveTag(t *testing.T) {
	base := setup()
	defer teardown()

	mux.HandleFunc("/repos/o/r/git/refs/tags/v1.2.3", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "token s3cret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		fmt.Fprint(w, refBody)
	})

	c := NewClient(base, "s3cret", log.NewNopLogger())
	sha, err := c.ResolveTag(context.Background(), "v1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "abc123", sha)
	assert.EqualValues(t, 1, atomic.LoadInt32(&requests))
}

func TestResolveTagEscapesName(t *testing.T) {
	base := setup()
	defer teardown()

	var paths, queries []string
	mux.HandleFunc("/repos/o/r/git/refs/tags/", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		queries = append(queries, r.URL.RawQuery)
		fmt.Fprint(w, refBody)
	})

	c := NewClient(base, "", log.NewNopLogger())
	for _, tag := range []string{"v1.2.3#hotfix", "v1.2.3?x=1", "release/v1.2.3"} {
		_, err := c.ResolveTag(context.Background(), tag)
		require.NoError(t, err, tag)
	}
	assert.Equal(t, []string{
		"/repos/o/r/git/refs/tags/v1.2.3#hotfix",
		"/repos/o/r/git/refs/tags/v1.2.3?x=1",
		"/repos/o/r/git/refs/tags/release/v1.2.3",
	}, paths)
	assert.Equal(t, []string{"", "", ""}, queries)
}

func TestResolveTagWithoutToken(t *testing.T) {
	base := setup()
	defer teardown()

	mux.HandleFunc("/repos/o/r/git/refs/tags/v1.2.3", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, refBody)
	})

	sha, err := NewClient(base+"/", "", log.NewNopLogger()).ResolveTag(context.Background(), "v1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "abc123", sha)
}

func TestResolveTagNotFound(t *testing.T) {
	base := setup()
	defer teardown()

	mux.HandleFunc("/repos/o/r/git/refs/tags/v9.9.9", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "Not Found")
	})

	c := NewClient(base, "s3cret", log.NewNopLogger())
	_, err := c.ResolveTag(context.Background(), "v9.9.9")
	tagErr, ok := err.(*TagResolutionError)
	require.True(t, ok, "expected *TagResolutionError, got %T: %v", err, err)
	assert.Equal(t, "Not Found", tagErr.Body)
	assert.Equal(t, "Not Found", tagErr.ResponseBody())
	assert.Equal(t, "v9.9.9", tagErr.Tag)
	assert.Equal(t, http.StatusNotFound, tagErr.StatusCode)
	// no retries
	assert.EqualValues(t, 1, atomic.LoadInt32(&requests))
}

func TestResolveTagServerError(t *testing.T) {
	base := setup()
	defer teardown()

	mux.HandleFunc("/repos/o/r/git/refs/tags/v1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"message":"upstream unavailable"}`)
	})

	_, err := NewClient(base, "", log.NewNopLogger()).ResolveTag(context.Background(), "v1")
	tagErr, ok := err.(*TagResolutionError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, tagErr.StatusCode)
	assert.Equal(t, `{"message":"upstream unavailable"}`, tagErr.Body)
}

func TestResolveTagPartialMatches(t *testing.T) {
	base := setup()
	defer teardown()

	mux.HandleFunc("/repos/o/r/git/refs/tags/v1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "["+refBody+"]")
	})

	_, err := NewClient(base, "", log.NewNopLogger()).ResolveTag(context.Background(), "v1")
	assert.Error(t, err)
}

type countingResolver struct {
	calls int
	sha   string
	err   error
}

func (r *countingResolver) ResolveTag(ctx context.Context, tag string) (string, error) {
	r.calls++
	return r.sha, r.err
}

func TestMemoize(t *testing.T) {
	inner := &countingResolver{sha: "abc123"}
	r := Memoize(inner)
	for i := 0; i < 3; i++ {
		sha, err := r.ResolveTag(context.Background(), "v1.2.3")
		require.NoError(t, err)
		assert.Equal(t, "abc123", sha)
	}
	assert.Equal(t, 1, inner.calls)

	_, err := r.ResolveTag(context.Background(), "v2")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestMemoizeDoesNotKeepErrors(t *testing.T) {
	inner := &countingResolver{err: &TagResolutionError{Tag: "v1", StatusCode: 500}}
	r := Memoize(inner)
	_, err := r.ResolveTag(context.Background(), "v1")
	assert.Error(t, err)
	_, err = r.ResolveTag(context.Background(), "v1")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
