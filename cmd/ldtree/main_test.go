package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appsworld/go-rtld/internal/dso"
)

func TestChildrenOfMatchesBySoNameOrPath(t *testing.T) {
	reg := dso.NewRegistry()
	app := &dso.DSO{Path: "/bin/app", Handle: "h1", Needed: []string{"libc.so.6"}}
	libc := &dso.DSO{Path: "/lib/libc.so.6", Handle: "h2", SoName: "libc.so.6"}
	require.NoError(t, reg.Insert(app))
	require.NoError(t, reg.Insert(libc))

	got := childrenOf(reg, app)
	assert.Equal(t, []*dso.DSO{libc}, got)
}
