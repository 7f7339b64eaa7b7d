package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appsworld/go-rtld/internal/dso"
)

func TestReverse(t *testing.T) {
	a := &dso.DSO{Path: "a"}
	b := &dso.DSO{Path: "b"}
	c := &dso.DSO{Path: "c"}
	got := reverse([]*dso.DSO{a, b, c})
	assert.Equal(t, []*dso.DSO{c, b, a}, got)
}

func TestReverseEmpty(t *testing.T) {
	assert.Empty(t, reverse(nil))
}

func TestManagerChildrenOfMatchesBySoName(t *testing.T) {
	m := &Manager{Registry: dso.NewRegistry()}
	app := &dso.DSO{Path: "/bin/app", Handle: "h1", Needed: []string{"libc.so.6"}}
	libc := &dso.DSO{Path: "/lib/libc.so.6", Handle: "h2", SoName: "libc.so.6"}
	require.NoError(t, m.Registry.Insert(app))
	require.NoError(t, m.Registry.Insert(libc))

	children := m.childrenOf(app)
	assert.Equal(t, []*dso.DSO{libc}, children)
}
