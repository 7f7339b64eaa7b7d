package rtld

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appsworld/go-rtld/internal/dso"
	"github.com/appsworld/go-rtld/types"
)

func newTestLinker(t *testing.T) *Linker {
	t.Helper()
	return New(Config{})
}

func TestHandleZeroValueInvalid(t *testing.T) {
	var h Handle
	assert.Equal(t, "<nil>", h.String())
	assert.False(t, h.valid())
}

func TestLinkErrorFormatsKindPathAndCause(t *testing.T) {
	e := &LinkError{Kind: ErrLoad, Path: "/lib/libfoo.so", Err: assertErr("file not found")}
	assert.Contains(t, e.Error(), "load failure")
	assert.Contains(t, e.Error(), "/lib/libfoo.so")
	assert.Contains(t, e.Error(), "file not found")
}

func TestLinkErrorUnwrap(t *testing.T) {
	cause := assertErr("boom")
	e := &LinkError{Kind: ErrRelocation, Err: cause}
	assert.ErrorIs(t, e, cause)
}

func TestDlerrorClearsAfterRead(t *testing.T) {
	l := newTestLinker(t)
	assert.Empty(t, l.Dlerror())

	setError(defaultToken, &LinkError{Kind: ErrLoad, Path: "x.so", Err: assertErr("missing")})
	msg := l.Dlerror()
	assert.Contains(t, msg, "x.so")
	assert.Empty(t, l.Dlerror())
}

func TestDlerrorTokensAreIndependent(t *testing.T) {
	l := newTestLinker(t)
	setError(ErrToken("a"), &LinkError{Kind: ErrLoad, Path: "a.so"})
	assert.Empty(t, l.DlerrorToken(ErrToken("b")))
	assert.Contains(t, l.DlerrorToken(ErrToken("a")), "a.so")
}

func TestDlcloseRejectsInvalidHandle(t *testing.T) {
	l := newTestLinker(t)
	err := l.Dlclose(Handle{})
	assert.Error(t, err)
}

func TestDladdrFindsContainingDSOAndNearestSymbol(t *testing.T) {
	l := newTestLinker(t)
	d := &dso.DSO{
		Path:     "/lib/libgreet.so",
		LoadBias: 0x1000,
		Segments: []dso.MappedSegment{{Addr: 0x2000, Size: 0x1000}},
		Symtab: []types.Sym{
			{Name: "greet_init", Value: 0x100, Shndx: 1},
			{Name: "greet_run", Value: 0x200, Shndx: 1},
			{Name: "unresolved_ref", Value: 0, Shndx: uint16(types.SHN_UNDEF)},
		},
		Handle: "h1",
	}
	require.NoError(t, l.Reg.Insert(d))

	info, ok := l.Dladdr(0x2250, nil)
	require.True(t, ok)
	assert.Equal(t, "/lib/libgreet.so", info.Path)
	assert.True(t, info.HasSymbol)
	assert.Equal(t, "greet_run", info.SymName)
}

func TestDladdrMissNotFound(t *testing.T) {
	l := newTestLinker(t)
	_, ok := l.Dladdr(0xdeadbeef, nil)
	assert.False(t, ok)
}

func TestLinkMapReflectsLoadOrder(t *testing.T) {
	l := newTestLinker(t)
	a := &dso.DSO{Path: "/bin/app", Handle: "h1"}
	b := &dso.DSO{Path: "/lib/libc.so.6", Handle: "h2"}
	require.NoError(t, l.Reg.Insert(a))
	require.NoError(t, l.Reg.Insert(b))

	entries := l.LinkMap()
	require.Len(t, entries, 2)
	assert.Equal(t, "/bin/app", entries[0].Path)
	assert.Equal(t, "/lib/libc.so.6", entries[1].Path)
}

func TestDlinfoReportsHandleIdentity(t *testing.T) {
	l := newTestLinker(t)
	d := &dso.DSO{Path: "/lib/libx.so", Handle: "hx"}
	require.NoError(t, l.Reg.Insert(d))
	d.AddRef()

	got, err := l.Dlinfo(Handle{d: d})
	require.NoError(t, err)
	assert.Equal(t, "/lib/libx.so", got.Path)
	assert.Equal(t, int32(1), got.RefCount)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
