package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilErrorField(t *testing.T) {
	type S struct {
		Err *Error
	}
	bytes, err := json.Marshal(S{})
	require.NoError(t, err)

	var s S
	require.NoError(t, json.Unmarshal(bytes, &s))
	assert.Nil(t, s.Err)
}

// The HTTP client reconstructs errors from the daemon's JSON; the
// type and help must survive the trip so deployctl can print them.
func TestErrorSurvivesTransport(t *testing.T) {
	sent := &Error{
		Type: Missing,
		Help: "no environments\nare registered",
		Err:  errors.New("no environment configmaps found"),
	}
	bytes, err := json.Marshal(sent)
	require.NoError(t, err)

	var got Error
	require.NoError(t, json.Unmarshal(bytes, &got))
	assert.Equal(t, sent.Type, got.Type)
	assert.Equal(t, sent.Help, got.Help)
	assert.EqualError(t, got.Err, "no environment configmaps found")
	assert.True(t, IsMissing(&got))
	assert.False(t, IsUser(&got))
}

func TestCoverAllError(t *testing.T) {
	err := CoverAllError(errors.New("boom"))
	assert.Equal(t, Server, err.Type)
	assert.Contains(t, err.Help, "boom")
	assert.False(t, IsMissing(err))
	assert.False(t, IsMissing(errors.New("plain")))
}
