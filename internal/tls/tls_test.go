package tls

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appsworld/go-rtld/internal/dso"
)

func TestRegisterStaticAssignsGrowingDownOffsets(t *testing.T) {
	r := NewRegistry(true)
	a := &dso.DSO{Path: "/bin/app", TLSMemSize: 16, TLSAlign: 8}
	b := &dso.DSO{Path: "/lib/liba.so", TLSMemSize: 32, TLSAlign: 16}

	ma, err := r.RegisterStatic(a)
	require.NoError(t, err)
	mb, err := r.RegisterStatic(b)
	require.NoError(t, err)

	assert.Less(t, ma.StaticOffset, int64(0))
	assert.Less(t, mb.StaticOffset, ma.StaticOffset)
	assert.Equal(t, uint32(1), a.TLSModuleID)
	assert.Equal(t, uint32(2), b.TLSModuleID)
}

func TestRegisterStaticAfterFreezeFails(t *testing.T) {
	r := NewRegistry(true)
	r.FreezeStatic()
	_, err := r.RegisterStatic(&dso.DSO{Path: "/late.so", TLSMemSize: 8})
	assert.Error(t, err)
}

func TestRegisterDynamicReusesReleasedSlot(t *testing.T) {
	r := NewRegistry(false)
	r.FreezeStatic()

	plugin := &dso.DSO{Path: "/plugin.so", TLSMemSize: 8, TLSAlign: 8}
	m := r.RegisterDynamic(plugin)
	genAfterAdd := r.Generation()
	assert.NotZero(t, genAfterAdd)

	r.Release(m.ID)
	genAfterRelease := r.Generation()
	assert.Greater(t, genAfterRelease, genAfterAdd)

	plugin2 := &dso.DSO{Path: "/plugin2.so", TLSMemSize: 8, TLSAlign: 8}
	m2 := r.RegisterDynamic(plugin2)
	assert.Equal(t, m.ID, m2.ID)
}

func TestOffsetForRequiresStaticModule(t *testing.T) {
	r := NewRegistry(true)
	r.FreezeStatic()
	d := &dso.DSO{Path: "/plugin.so", TLSMemSize: 8, TLSAlign: 8}
	r.RegisterDynamic(d)
	_, err := r.OffsetFor(d, 0)
	assert.Error(t, err)
}

func TestDTVEnsureCurrentGrows(t *testing.T) {
	r := NewRegistry(false)
	r.FreezeStatic()
	dtv := NewDTV(r)
	initialLen := len(dtv.Slots)

	d := &dso.DSO{Path: "/plugin.so", TLSMemSize: 8, TLSAlign: 8}
	r.RegisterDynamic(d)

	dtv.EnsureCurrent(r)
	assert.Greater(t, len(dtv.Slots), initialLen)
	assert.Equal(t, r.Generation(), dtv.Generation)
}

func TestDTVEnsureCurrentResetsReusedSlot(t *testing.T) {
	r := NewRegistry(false)
	r.FreezeStatic()

	plugin := &dso.DSO{Path: "/plugin.so", TLSMemSize: 8, TLSAlign: 8}
	m := r.RegisterDynamic(plugin)

	dtv := NewDTV(r)
	dtv.EnsureCurrent(r)
	// Simulate the thread having already populated its block for the
	// first occupant of this slot.
	stale := unsafe.Pointer(&struct{ x int }{42})
	dtv.Slots[m.ID] = stale

	r.Release(m.ID)

	plugin2 := &dso.DSO{Path: "/plugin2.so", TLSMemSize: 8, TLSAlign: 8}
	m2 := r.RegisterDynamic(plugin2)
	require.Equal(t, m.ID, m2.ID, "test assumes the freed ID is reused")

	dtv.EnsureCurrent(r)
	assert.Nil(t, dtv.Slots[m2.ID], "reused slot must be reset, not hand back the previous module's block")
}
