package reloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appsworld/go-rtld/internal/arch"
	"github.com/appsworld/go-rtld/internal/dso"
	"github.com/appsworld/go-rtld/internal/resolver"
	"github.com/appsworld/go-rtld/internal/tls"
	"github.com/appsworld/go-rtld/types"
)

func currentHandler(t *testing.T) arch.Handler {
	t.Helper()
	a, err := arch.Current()
	require.NoError(t, err)
	h, ok := arch.For(a)
	require.True(t, ok, "no arch.Handler registered for %s", a)
	return h
}

// relTypeOf scans the handler's classification table for a raw RelType
// mapping to class, keeping these tests architecture-agnostic.
func relTypeOf(h arch.Handler, class types.RelClass) types.RelType {
	for t := types.RelType(0); t < 2048; t++ {
		if h.Classify(t) == class {
			return t
		}
	}
	return types.RelType(0)
}

func TestApplyRelativeRelocation(t *testing.T) {
	h := currentHandler(t)
	buf := make([]uint64, 4)
	base := uintptr(unsafe.Pointer(&buf[0]))

	d := &dso.DSO{LoadBias: int64(base)}
	d.RelaEntries = []types.RelEntry{
		{Offset: 0, Type: relTypeOf(h, types.RelRelative), Addend: 0x10, HasAddend: true},
	}

	res, err := resolver.New(8)
	require.NoError(t, err)
	app := &Applier{Handler: h, Resolver: res, TLS: tls.NewRegistry(true)}

	err = app.Apply(d, nil, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(base)+0x10, buf[0])
}

func TestApplyAbsoluteRelocationResolvesSymbol(t *testing.T) {
	h := currentHandler(t)
	buf := make([]uint64, 1)
	targetAddr := uintptr(unsafe.Pointer(&buf[0]))

	libBuf := make([]byte, 8)
	libBias := int64(uintptr(unsafe.Pointer(&libBuf[0])))
	lib := &dso.DSO{
		LoadBias: libBias,
		Symtab:   []types.Sym{{Name: "answer", Value: 42, Bind: types.STB_GLOBAL, Shndx: 1}},
	}

	caller := &dso.DSO{
		LoadBias: 0,
		Symtab:   []types.Sym{{Name: "answer", Shndx: types.SHN_UNDEF}},
	}
	caller.RelaEntries = []types.RelEntry{
		{Offset: uint64(targetAddr), Type: relTypeOf(h, types.RelAbsolute), SymIdx: 0, HasAddend: true},
	}

	res, err := resolver.New(8)
	require.NoError(t, err)
	app := &Applier{Handler: h, Resolver: res, TLS: tls.NewRegistry(true)}

	scope := dso.Scope{caller, lib}
	require.NoError(t, app.Apply(caller, scope, false))
	assert.Equal(t, uint64(libBias)+42, buf[0])
}
