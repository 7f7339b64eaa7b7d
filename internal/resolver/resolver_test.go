package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appsworld/go-rtld/internal/dso"
	"github.com/appsworld/go-rtld/types"
)

func libWithSymbols(path string, bias int64, syms ...types.Sym) *dso.DSO {
	return &dso.DSO{Path: path, Handle: path, LoadBias: bias, Symtab: syms}
}

func TestResolveFindsFirstMatchInScope(t *testing.T) {
	libc := libWithSymbols("/lib/libc.so", 0x1000,
		types.Sym{Name: "malloc", Value: 0x100, Bind: types.STB_GLOBAL, Type: types.STT_FUNC, Shndx: 1})
	libm := libWithSymbols("/lib/libm.so", 0x2000,
		types.Sym{Name: "sin", Value: 0x200, Bind: types.STB_GLOBAL, Type: types.STT_FUNC, Shndx: 1})

	r, err := New(64)
	require.NoError(t, err)

	res, ok := r.Resolve(Request{Name: "malloc", Scope: dso.Scope{libc, libm}})
	require.True(t, ok)
	assert.Same(t, libc, res.DSO)
	assert.Equal(t, uint64(0x1100), res.Addr)

	_, ok = r.Resolve(Request{Name: "cos", Scope: dso.Scope{libc, libm}})
	assert.False(t, ok)
}

func TestResolveSkipsUndefinedAndLocalSymbols(t *testing.T) {
	lib := libWithSymbols("/lib/libx.so", 0,
		types.Sym{Name: "hidden_helper", Bind: types.STB_LOCAL, Shndx: 1},
		types.Sym{Name: "undefined_ref", Bind: types.STB_GLOBAL, Shndx: types.SHN_UNDEF},
		types.Sym{Name: "real_export", Value: 0x50, Bind: types.STB_GLOBAL, Shndx: 1},
	)
	r, err := New(8)
	require.NoError(t, err)

	_, ok := r.Resolve(Request{Name: "hidden_helper", Scope: dso.Scope{lib}})
	assert.False(t, ok)

	_, ok = r.Resolve(Request{Name: "undefined_ref", Scope: dso.Scope{lib}})
	assert.False(t, ok)

	res, ok := r.Resolve(Request{Name: "real_export", Scope: dso.Scope{lib}})
	require.True(t, ok)
	assert.Equal(t, uint64(0x50), res.Addr)
}

func TestVersionSatisfiesUnversionedRequest(t *testing.T) {
	d := &dso.DSO{
		Versym:  []types.Versym{0, types.Versym(2)},
		Verdefs: []types.Verdef{{Index: 2, Name: "GLIBC_2.2.5"}},
	}
	assert.True(t, versionSatisfies(d, 1, ""))
	assert.True(t, versionSatisfies(d, 1, "GLIBC_2.2.5"))
	assert.False(t, versionSatisfies(d, 1, "GLIBC_2.30"))
}

func TestVersionSatisfiesHiddenVersion(t *testing.T) {
	d := &dso.DSO{
		Versym: []types.Versym{types.Versym(2) | types.VERSYM_HIDDEN},
	}
	assert.False(t, versionSatisfies(d, 0, ""))
}

func TestResolveStrongDefinitionOverridesEarlierWeakMatch(t *testing.T) {
	libA := libWithSymbols("/lib/liba.so", 0x1000,
		types.Sym{Name: "frob", Value: 0x10, Bind: types.STB_WEAK, Type: types.STT_FUNC, Shndx: 1})
	libB := libWithSymbols("/lib/libb.so", 0x2000,
		types.Sym{Name: "frob", Value: 0x20, Bind: types.STB_GLOBAL, Type: types.STT_FUNC, Shndx: 1})

	r, err := New(64)
	require.NoError(t, err)

	res, ok := r.Resolve(Request{Name: "frob", Scope: dso.Scope{libA, libB}})
	require.True(t, ok)
	assert.Same(t, libB, res.DSO, "the strong definition later in scope must win over an earlier weak one")
	assert.Equal(t, uint64(0x2020), res.Addr)
}

func TestResolveFallsBackToWeakWhenNoStrongDefinitionExists(t *testing.T) {
	libA := libWithSymbols("/lib/liba.so", 0x1000,
		types.Sym{Name: "frob", Value: 0x10, Bind: types.STB_WEAK, Type: types.STT_FUNC, Shndx: 1})
	libB := libWithSymbols("/lib/libb.so", 0x2000)

	r, err := New(64)
	require.NoError(t, err)

	res, ok := r.Resolve(Request{Name: "frob", Scope: dso.Scope{libA, libB}})
	require.True(t, ok)
	assert.Same(t, libA, res.DSO)
	assert.Equal(t, uint64(0x1010), res.Addr)
}

func TestResolveSkipSelf(t *testing.T) {
	lib := libWithSymbols("/lib/liba.so", 0,
		types.Sym{Name: "f", Value: 1, Bind: types.STB_GLOBAL, Shndx: 1})
	r, err := New(4)
	require.NoError(t, err)
	_, ok := r.Resolve(Request{Name: "f", Scope: dso.Scope{lib}, Skip: lib})
	assert.False(t, ok)
}
