package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsExtractsOptionsAndProgTail(t *testing.T) {
	o, err := parseArgs([]string{"--argv0", "myprog", "--library-path", "/opt/lib", "/bin/prog", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "myprog", o.argv0)
	assert.Equal(t, "/opt/lib", o.libraryPath)
	assert.Equal(t, "/bin/prog", o.prog)
	assert.Equal(t, []string{"a", "b"}, o.progArgs)
}

func TestParseArgsEqualsForm(t *testing.T) {
	o, err := parseArgs([]string{"--argv0=myprog", "--library-path=/opt/lib", "/bin/prog"})
	require.NoError(t, err)
	assert.Equal(t, "myprog", o.argv0)
	assert.Equal(t, "/opt/lib", o.libraryPath)
}

func TestParseArgsDefaultsArgv0ToProg(t *testing.T) {
	o, err := parseArgs([]string{"/bin/prog"})
	require.NoError(t, err)
	assert.Equal(t, "/bin/prog", o.argv0)
}

func TestParseArgsRequiresProg(t *testing.T) {
	_, err := parseArgs([]string{"--argv0", "x"})
	assert.Error(t, err)
}

func TestSplitPreloadHandlesColonsAndSpaces(t *testing.T) {
	got := splitPreload("a.so:b.so c.so")
	assert.Equal(t, []string{"a.so", "b.so", "c.so"}, got)
}
