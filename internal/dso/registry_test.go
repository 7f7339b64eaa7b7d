package dso

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDSO(path, handle string, low, high uintptr) *DSO {
	return &DSO{
		Path:   path,
		Handle: handle,
		Segments: []MappedSegment{
			{Addr: low, Size: high - low},
		},
	}
}

func TestRegistryInsertAndLookup(t *testing.T) {
	r := NewRegistry()
	main := newTestDSO("/bin/app", "h1", 0x1000, 0x2000)
	require.NoError(t, r.Insert(main))

	got, ok := r.Lookup("/bin/app")
	require.True(t, ok)
	assert.Same(t, main, got)

	_, ok = r.Lookup("/bin/missing")
	assert.False(t, ok)
}

func TestRegistryDuplicateInsertFails(t *testing.T) {
	r := NewRegistry()
	d := newTestDSO("/lib/libc.so", "h1", 0x1000, 0x2000)
	require.NoError(t, r.Insert(d))
	err := r.Insert(d)
	assert.Error(t, err)
}

func TestRegistryLinkMapOrder(t *testing.T) {
	r := NewRegistry()
	a := newTestDSO("/bin/app", "h1", 0x1000, 0x1100)
	b := newTestDSO("/lib/libc.so", "h2", 0x2000, 0x2100)
	c := newTestDSO("/lib/libm.so", "h3", 0x3000, 0x3100)
	require.NoError(t, r.Insert(a))
	require.NoError(t, r.Insert(b))
	require.NoError(t, r.Insert(c))

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, []*DSO{a, b, c}, all)
	assert.Same(t, a, r.Head())
}

func TestRegistryRemoveSplicesLinkMap(t *testing.T) {
	r := NewRegistry()
	a := newTestDSO("/bin/app", "h1", 0x1000, 0x1100)
	b := newTestDSO("/lib/libc.so", "h2", 0x2000, 0x2100)
	c := newTestDSO("/lib/libm.so", "h3", 0x3000, 0x3100)
	require.NoError(t, r.Insert(a))
	require.NoError(t, r.Insert(b))
	require.NoError(t, r.Insert(c))

	r.Remove(b)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, []*DSO{a, c}, all)
	assert.Nil(t, b.Next)
	assert.Nil(t, b.Prev)
}

func TestRegistryFindByAddr(t *testing.T) {
	r := NewRegistry()
	a := newTestDSO("/bin/app", "h1", 0x1000, 0x1100)
	b := newTestDSO("/lib/libc.so", "h2", 0x2000, 0x2200)
	require.NoError(t, r.Insert(a))
	require.NoError(t, r.Insert(b))

	d, ok := r.FindByAddr(0x2050)
	require.True(t, ok)
	assert.Same(t, b, d)

	_, ok = r.FindByAddr(0x1500)
	assert.False(t, ok)
}

func TestScopeDependencyWalkDedupsAndOrdersBFS(t *testing.T) {
	app := newTestDSO("/bin/app", "h1", 0x1000, 0x1100)
	libA := newTestDSO("/lib/liba.so", "h2", 0x2000, 0x2100)
	libB := newTestDSO("/lib/libb.so", "h3", 0x3000, 0x3100)
	libShared := newTestDSO("/lib/libshared.so", "h4", 0x4000, 0x4100)

	deps := map[*DSO][]*DSO{
		app:  {libA, libB},
		libA: {libShared},
		libB: {libShared},
	}

	scope := DependencyScope(app, func(d *DSO) []*DSO { return deps[d] })
	assert.Equal(t, Scope{app, libA, libB, libShared}, scope)
	assert.True(t, scope.Contains(libShared))
}

func TestDependencyPostOrderHandlesDiamond(t *testing.T) {
	app := newTestDSO("/bin/app", "h1", 0x1000, 0x1100)
	libssl := newTestDSO("/lib/libssl.so", "h2", 0x2000, 0x2100)
	libc := newTestDSO("/lib/libc.so", "h3", 0x3000, 0x3100)

	// app needs [libssl, libc]; libssl also needs libc — the most
	// common real diamond shape. Breadth-first discovery order would
	// put app first and never guarantee libc precedes libssl.
	deps := map[*DSO][]*DSO{
		app:    {libssl, libc},
		libssl: {libc},
	}

	order := DependencyPostOrder(app, func(d *DSO) []*DSO { return deps[d] })
	assert.Equal(t, Scope{libc, libssl, app}, order)
}

func TestDependencyPostOrderToleratesCycles(t *testing.T) {
	a := newTestDSO("/lib/a.so", "h1", 0x1000, 0x1100)
	b := newTestDSO("/lib/b.so", "h2", 0x2000, 0x2100)

	deps := map[*DSO][]*DSO{
		a: {b},
		b: {a},
	}

	order := DependencyPostOrder(a, func(d *DSO) []*DSO { return deps[d] })
	assert.ElementsMatch(t, Scope{a, b}, order)
	assert.Len(t, order, 2)
}

func TestMergeKeepsFirstOccurrenceAcrossScopes(t *testing.T) {
	a := newTestDSO("/lib/a.so", "h1", 0x1000, 0x1100)
	b := newTestDSO("/lib/b.so", "h2", 0x2000, 0x2100)
	c := newTestDSO("/lib/c.so", "h3", 0x3000, 0x3100)

	merged := Merge(Scope{a, b}, Scope{b, c})
	assert.Equal(t, Scope{a, b, c}, merged)
}
