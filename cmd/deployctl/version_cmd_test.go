package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommandWantsNoArgs(t *testing.T) {
	_, err := execute(&server{}, "version", "foo")
	assert.IsType(t, usageError{}, err)
}

func TestVersionCommand(t *testing.T) {
	defer func(v string) { version = v }(version)

	for _, c := range []struct {
		version string
		want    string
	}{
		{"v1.0.0", "v1.0.0\n"},
		{"", "unversioned\n"},
	} {
		version = c.version
		out, err := execute(&server{}, "version")
		require.NoError(t, err)
		assert.Equal(t, c.want, out)
	}
}

func TestVersionCommandAsksServer(t *testing.T) {
	defer func(v string) { version = v }(version)
	version = "v1.0.0"

	out, err := execute(&server{}, "version", "--server")
	require.NoError(t, err)
	assert.Equal(t, "deployctl:\tv1.0.0\ndeployerd:\ttest\n", out)
}

// Without a server configured, a bad command line fails before any
// attempt to find one.
func TestArgsCheckedBeforeConnecting(t *testing.T) {
	for _, args := range [][]string{
		{"run"},
		{"release", "v1", "v2"},
		{"status"},
		{"version", "extra"},
	} {
		root := &rootOpts{}
		cmd := root.Command()
		cmd.SetArgs(append(args, "--k8s-fwd-ns=nowhere"))
		cmd.SetOut(new(nopWriter))
		cmd.SetErr(new(nopWriter))
		err := cmd.Execute()
		assert.IsType(t, usageError{}, err, "%v", args)
		assert.Nil(t, root.API, "%v", args)
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
